package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/dto"
	"github.com/SscSPs/disbursement_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// errorStatus maps a service error to an HTTP status and a client-facing message.
// Order matters: a DisbursementError unwraps to provider sentinels, and
// ErrAccountNotFound wraps ErrNotFound.
func errorStatus(err error) (int, string) {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusForbidden, apperrors.ErrUnauthorized.Error()
	case errors.Is(err, apperrors.ErrInvalidOrExpiredCode):
		return http.StatusUnauthorized, apperrors.ErrInvalidOrExpiredCode.Error()
	case errors.Is(err, apperrors.ErrCodeDelivery):
		return http.StatusServiceUnavailable, apperrors.ErrCodeDelivery.Error()
	case errors.Is(err, apperrors.ErrInvalidState):
		return http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrInsufficientLocalFunds),
		errors.Is(err, apperrors.ErrInsufficientProviderFunds):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, apperrors.ErrUnbalancedTransaction):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrProviderUnavailable),
		errors.Is(err, apperrors.ErrResolutionFailed),
		errors.Is(err, apperrors.ErrTransferRejected),
		errors.Is(err, apperrors.ErrTransferPending):
		return http.StatusBadGateway, err.Error()
	case errors.As(err, &appErr):
		return appErr.Code, appErr.Message
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// respondError writes err as JSON. A payout that left beneficiaries unpaid is
// reported with its split so the client knows a retry is safe.
func respondError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	if de, ok := apperrors.AsDisbursementError(err); ok {
		logger.Warn(msg, slog.String("error", err.Error()), slog.String("outcome", de.Outcome),
			slog.Int("succeeded", de.Succeeded), slog.Int("failed", de.Failed))
		c.JSON(http.StatusBadGateway, dto.DisbursementErrorResponse{
			Error:     de.Error(),
			Status:    de.Outcome,
			Succeeded: de.Succeeded,
			Failed:    de.Failed,
		})
		return
	}

	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, slog.String("error", err.Error()))
	} else {
		logger.Warn(msg, slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": message})
}

// requireUserID aborts with 401 when the auth middleware left no subject.
func requireUserID(c *gin.Context, logger *slog.Logger) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}
