package models

import (
	"database/sql"
	"time"
)

// User is the row shape of the users table. Permissions live in user_permissions.
type User struct {
	UserID string `db:"user_id"`
	Email  string `db:"email"`
	Name   string `db:"name"`
	AuditFields
	DeletedAt sql.NullTime `db:"deleted_at"`
}

// OneTimeCode is the row shape of the one_time_codes table.
type OneTimeCode struct {
	Identifier string    `db:"identifier"`
	CodeHash   string    `db:"code_hash"`
	ExpiresAt  time.Time `db:"expires_at"`
	CreatedAt  time.Time `db:"created_at"`
}
