package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/disbursement_ledger/cmd/docs"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/disbursement_ledger/internal/core/ports/services"
	"github.com/SscSPs/disbursement_ledger/internal/middleware"
	"github.com/SscSPs/disbursement_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// Containers holds one service container per ledger mode. Live and test books
// never share a container.
type Containers map[domain.Mode]*portssvc.ServiceContainer

// forRequest picks the container for the mode resolved by ModeMiddleware.
func (cs Containers) forRequest(c *gin.Context) (*portssvc.ServiceContainer, bool) {
	mode := middleware.GetModeFromCtx(c.Request.Context())
	container, ok := cs[mode]
	if !ok || container == nil {
		middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Mode not configured", slog.String("mode", string(mode)))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ledger mode " + string(mode) + " is not configured"})
		return nil, false
	}
	return container, true
}

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	containers Containers,
	otpLimiter *limiter.Limiter,
) {
	registerValidators()

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	setupAPIV1Routes(r, cfg, containers, otpLimiter)

	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	containers Containers,
	otpLimiter *limiter.Limiter,
) {
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret), middleware.ModeMiddleware())

	registerUserRoutes(v1, containers)
	registerOTPRoutes(v1, containers, otpLimiter, !cfg.IsProduction)
	registerAccountRoutes(v1, containers)
	registerLedgerRoutes(v1, containers)
	registerExpenseRoutes(v1, containers)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
