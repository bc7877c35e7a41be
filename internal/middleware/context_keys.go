package middleware

import (
	"context"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// userIDKey is the key used to store the authenticated user's ID.
const userIDKey = contextKey("userID")

// modeKey is the key used to store the resolved ledger mode.
const modeKey = contextKey("mode")

// GetUserIDFromContext retrieves the authenticated user ID from the request.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, ok := c.Request.Context().Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// WithMode returns a copy of ctx carrying mode.
func WithMode(ctx context.Context, mode domain.Mode) context.Context {
	return context.WithValue(ctx, modeKey, mode)
}

// GetModeFromCtx returns the mode resolved by ModeMiddleware, or live when none was resolved.
func GetModeFromCtx(ctx context.Context) domain.Mode {
	if mode, ok := ctx.Value(modeKey).(domain.Mode); ok {
		return mode
	}
	return domain.ModeLive
}
