package domain

import "time"

// OneTimeCode is the stored form of an issued code. Only the bcrypt hash is kept.
type OneTimeCode struct {
	Identifier string    `json:"identifier"`
	CodeHash   string    `json:"-"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Expired reports whether the code is no longer usable at now.
func (c OneTimeCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
