package domain

import (
	"slices"
	"time"
)

// Permission names an action a principal may perform.
type Permission string

const (
	PermissionDisburse     Permission = "disburse_payments"
	PermissionManageLedger Permission = "manage_ledger"
)

// User is the acting principal. Users are provisioned by the identity system, this service only reads them.
type User struct {
	UserID      string       `json:"userID"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// HasPermission reports whether the user holds p and is not deleted.
func (u User) HasPermission(p Permission) bool {
	return u.DeletedAt == nil && slices.Contains(u.Permissions, p)
}

// IsValid reports whether p is a known permission.
func (p Permission) IsValid() bool {
	return p == PermissionDisburse || p == PermissionManageLedger
}
