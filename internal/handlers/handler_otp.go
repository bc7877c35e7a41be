package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/disbursement_ledger/internal/dto"
	"github.com/SscSPs/disbursement_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
)

// otpHandler issues one-time codes to the authenticated principal.
type otpHandler struct {
	containers Containers
	revealCode bool
}

func newOTPHandler(containers Containers, revealCode bool) *otpHandler {
	return &otpHandler{containers: containers, revealCode: revealCode}
}

// registerOTPRoutes registers the code issuing route behind a rate limit.
// revealCode returns the plaintext in the response, for non-production use.
func registerOTPRoutes(rg *gin.RouterGroup, containers Containers, otpLimiter *limiter.Limiter, revealCode bool) {
	h := newOTPHandler(containers, revealCode)

	if otpLimiter != nil {
		rg.POST("/otp", middleware.RateLimit(otpLimiter), h.issueCode)
		return
	}
	rg.POST("/otp", h.issueCode)
}

// issueCode godoc
// @Summary Issue a one-time code
// @Description Issues a 6-digit code to the caller's email, invalidating any earlier one. The code authorizes one disbursement.
// @Tags otp
// @Produce json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Success 201 {object} dto.IssueCodeResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Caller is not a known user"
// @Failure 429 {object} dto.ErrorResponse "Too many requests"
// @Security BearerAuth
// @Router /otp [post]
func (h *otpHandler) issueCode(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}
	svc, ok := h.containers.forRequest(c)
	if !ok {
		return
	}

	user, err := svc.User.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logger, "Failed to look up caller for OTP", err)
		return
	}

	code, expiresAt, err := svc.OTP.Issue(c.Request.Context(), user.Email)
	if err != nil {
		respondError(c, logger, "Failed to issue OTP", err)
		return
	}

	logger.Info("One-time code issued", slog.Time("expires_at", expiresAt))
	resp := dto.IssueCodeResponse{Identifier: user.Email, ExpiresAt: expiresAt}
	if h.revealCode {
		resp.Code = code
	}
	c.JSON(http.StatusCreated, resp)
}
