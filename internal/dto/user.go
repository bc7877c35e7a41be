package dto

import (
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
)

// CreateUserRequest provisions a principal with its permissions.
type CreateUserRequest struct {
	Email       string              `json:"email" binding:"required,email"`
	Name        string              `json:"name" binding:"required"`
	Permissions []domain.Permission `json:"permissions" binding:"dive,oneof=disburse_payments manage_ledger"`
}

// UserResponse defines the data returned for a user.
type UserResponse struct {
	UserID      string              `json:"userID"`
	Email       string              `json:"email"`
	Name        string              `json:"name"`
	Permissions []domain.Permission `json:"permissions"`
	CreatedAt   time.Time           `json:"createdAt"`
	CreatedBy   string              `json:"createdBy"`
}

// ToUserResponse converts a domain.User to UserResponse DTO
func ToUserResponse(u *domain.User) UserResponse {
	perms := u.Permissions
	if perms == nil {
		perms = []domain.Permission{}
	}
	return UserResponse{
		UserID:      u.UserID,
		Email:       u.Email,
		Name:        u.Name,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
		CreatedBy:   u.CreatedBy,
	}
}
