package middleware

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// ModeHeader selects live or test books for a request.
const ModeHeader = "X-Ledger-Mode"

// ModeMiddleware resolves the ledger mode once per request. A missing header means live.
func ModeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		mode, err := domain.ParseMode(c.GetHeader(ModeHeader))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := WithMode(c.Request.Context(), mode)
		logger := GetLoggerFromCtx(ctx).With(slog.String("mode", string(mode)))
		c.Request = c.Request.WithContext(WithLogger(ctx, logger))
		c.Header(ModeHeader, string(mode))
		c.Next()
	}
}
