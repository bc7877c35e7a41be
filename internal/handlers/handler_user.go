package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/disbursement_ledger/internal/dto"
	"github.com/SscSPs/disbursement_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// userHandler handles HTTP requests related to principals.
type userHandler struct {
	containers Containers
}

// newUserHandler creates a new userHandler.
func newUserHandler(containers Containers) *userHandler {
	return &userHandler{containers: containers}
}

// registerUserRoutes registers routes related to users.
func registerUserRoutes(rg *gin.RouterGroup, containers Containers) {
	h := newUserHandler(containers)

	users := rg.Group("/users")
	{
		users.GET("/me", h.getSelf)
		users.POST("", h.createUser)
	}
}

// getSelf godoc
// @Summary Get the current user
// @Description Retrieves the principal identified by the bearer token, with its permissions
// @Tags users
// @Produce json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /users/me [get]
func (h *userHandler) getSelf(c *gin.Context) {
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
		respondError(c, logger, "Failed to get user", err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

// createUser godoc
// @Summary Create a new user
// @Description Provisions a principal. Requires the manage_ledger permission.
// @Tags users
// @Accept  json
// @Produce  json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   user body dto.CreateUserRequest true "User details"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 403 {object} dto.ErrorResponse "Missing manage_ledger permission"
// @Failure 409 {object} dto.ErrorResponse "Email already registered"
// @Security BearerAuth
// @Router /users [post]
func (h *userHandler) createUser(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateUser", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := requireUserID(c, logger)
	if !ok {
		return
	}
	svc, ok := h.containers.forRequest(c)
	if !ok {
		return
	}

	user, err := svc.User.CreateUser(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondError(c, logger, "Failed to create user", err)
		return
	}

	logger.Info("User created successfully", slog.String("new_user_id", user.UserID))
	c.JSON(http.StatusCreated, dto.ToUserResponse(user))
}
