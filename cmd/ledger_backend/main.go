package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/events"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/disbursement_ledger/internal/core/ports/services"
	"github.com/SscSPs/disbursement_ledger/internal/core/services"
	"github.com/SscSPs/disbursement_ledger/internal/events/kafka"
	"github.com/SscSPs/disbursement_ledger/internal/events/logging"
	"github.com/SscSPs/disbursement_ledger/internal/handlers"
	"github.com/SscSPs/disbursement_ledger/internal/middleware"
	"github.com/SscSPs/disbursement_ledger/internal/platform/config"
	"github.com/SscSPs/disbursement_ledger/internal/platform/metrics"
	"github.com/SscSPs/disbursement_ledger/internal/providers/flutterwave"
	"github.com/SscSPs/disbursement_ledger/internal/providers/httpclient"
	"github.com/SscSPs/disbursement_ledger/internal/providers/paystack"
	"github.com/SscSPs/disbursement_ledger/internal/providers/registry"
	"github.com/SscSPs/disbursement_ledger/internal/providers/simulated"
	"github.com/SscSPs/disbursement_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/disbursement_ledger/internal/repositories/memory"
	"github.com/SscSPs/disbursement_ledger/internal/repositories/redisstore"
	"github.com/SscSPs/disbursement_ledger/pkg/database"
)

// @title Disbursement Ledger API
// @version 1.0
// @description Double-entry sub-ledger that pays approved expenses through payment providers.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	livePool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(livePool)

	if err := runMigrations(logger, cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Principals and their codes belong to the person, not to a set of books,
	// so both modes authenticate against the live user store.
	users := pgsql.NewUserRepository(livePool)
	if err := bootstrapAdmin(ctx, cfg, users); err != nil {
		logger.Error("Failed to bootstrap admin user", slog.String("error", err.Error()))
		os.Exit(1)
	}

	otpRepo, closeOTP, err := newOTPRepository(cfg, livePool)
	if err != nil {
		logger.Error("Failed to initialize OTP store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeOTP()

	liveRepos := pgsql.NewRepositoryProvider(livePool)
	testRepos, closeTest, err := newTestRepositories(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize test books", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeTest()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(promRegistry)

	publisher, closePublisher := newPublisher(logger, cfg)
	defer closePublisher()
	notifier, closeNotifier := newCodeNotifier(logger, cfg)
	defer closeNotifier()

	containers := handlers.Containers{}
	for mode, repos := range map[domain.Mode]portsrepo.RepositoryProvider{
		domain.ModeLive: liveRepos,
		domain.ModeTest: testRepos,
	} {
		repos.UserRepo = users
		repos.OTPRepo = otpRepo
		containers[mode] = services.NewServiceContainer(services.ContainerDeps{
			Mode:                    mode,
			Repos:                   repos,
			Resolver:                newRegistry(mode, cfg, appMetrics),
			Publisher:               publisher,
			Notifier:                notifier,
			Metrics:                 appMetrics,
			OTPTTL:                  cfg.OTPTTL,
			DefaultExpenseAccountID: cfg.DefaultExpenseAccountID,
			Concurrency:             cfg.DisbursementConcurrency,
			PayoutTimeout:           cfg.DisbursementTimeout,
			StaleAfter:              cfg.DisbursementStaleAfter,
		})
	}

	otpRate, err := limiter.NewRateFromFormatted(cfg.OTPRateLimit)
	if err != nil {
		logger.Error("Invalid OTP_RATE_LIMIT", slog.String("error", err.Error()))
		os.Exit(1)
	}
	otpLimiter := limiter.New(limitermemory.NewStore(), otpRate)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddAllowHeaders("Authorization", middleware.ModeHeader)
	corsConfig.AddExposeHeaders(middleware.ModeHeader, "X-Request-ID")
	r.Use(cors.New(corsConfig))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))
	handlers.RegisterRoutes(r, cfg, containers, otpLimiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	// Payout phases detach from the request context, so give in-flight runs time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DisbursementTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
}

func runMigrations(logger *slog.Logger, databaseURL, migrationsPath string) error {
	logger.Info("Running database migrations...")
	// Open a temporary standard sql.DB connection for migrations
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return err
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return upErr
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

// newTestRepositories opens the test books: a separate database when PGSQL_TEST_URL
// is set, otherwise an in-process store that resets on restart.
func newTestRepositories(ctx context.Context, logger *slog.Logger, cfg *config.Config) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.TestDatabaseURL == "" {
		logger.Warn("PGSQL_TEST_URL not set, test mode uses in-memory books")
		return memory.NewRepositoryProvider(), func() {}, nil
	}

	pool, err := database.NewPgxPool(ctx, cfg.TestDatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}
	if err := runMigrations(logger, cfg.TestDatabaseURL, cfg.MigrationsPath); err != nil {
		pool.Close()
		return portsrepo.RepositoryProvider{}, nil, err
	}
	return pgsql.NewRepositoryProvider(pool), func() { database.ClosePgxPool(pool) }, nil
}

func newOTPRepository(cfg *config.Config, livePool *pgxpool.Pool) (portsrepo.OTPRepository, func(), error) {
	switch cfg.OTPStore {
	case config.OTPStoreRedis:
		client, err := redisstore.NewClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewOTPRepository(client), func() { _ = client.Close() }, nil
	case config.OTPStoreMemory:
		return memory.NewOTPRepository(), func() {}, nil
	default:
		return pgsql.NewOTPRepository(livePool), func() {}, nil
	}
}

func newPublisher(logger *slog.Logger, cfg *config.Config) (events.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("KAFKA_BROKERS not set, expense status changes are only logged")
		return logging.Publisher{}, func() {}
	}
	publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	logger.Info("Publishing expense status changes to Kafka",
		slog.String("brokers", strings.Join(cfg.KafkaBrokers, ",")),
		slog.String("topic", cfg.KafkaTopic))
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close Kafka publisher", slog.String("error", err.Error()))
		}
	}
}

// newCodeNotifier sends codes to the notification service through Kafka. Without brokers
// (never in production, see config) codes are only logged and returned in the response.
func newCodeNotifier(logger *slog.Logger, cfg *config.Config) (portssvc.CodeNotifier, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, one-time codes are only logged")
		return logging.Notifier{IncludeCode: !cfg.IsProduction}, func() {}
	}
	notifier := kafka.NewCodeNotifier(cfg.KafkaBrokers, cfg.KafkaCodeTopic)
	return notifier, func() {
		if err := notifier.Close(); err != nil {
			logger.Error("Failed to close Kafka code notifier", slog.String("error", err.Error()))
		}
	}
}

// newRegistry wires the rails of one mode. Test mode only ever sees test keys.
func newRegistry(mode domain.Mode, cfg *config.Config, m *metrics.Metrics) *registry.Registry {
	reg := registry.New(mode, simulated.New())

	rails := []struct {
		name string
		conf config.ProviderConfig
		ctor func(httpclient.Config) providers.PaymentProvider
	}{
		{paystack.Name, cfg.Paystack, func(c httpclient.Config) providers.PaymentProvider { return paystack.New(c) }},
		{flutterwave.Name, cfg.Flutterwave, func(c httpclient.Config) providers.PaymentProvider { return flutterwave.New(c) }},
	}
	for _, rail := range rails {
		defaultKey := rail.conf.SecretKey
		if mode == domain.ModeTest {
			defaultKey = rail.conf.TestSecretKey
		}
		reg.Register(rail.name, defaultKey, func(secretKey string) providers.PaymentProvider {
			return rail.ctor(httpclient.Config{
				Provider:   rail.name,
				BaseURL:    rail.conf.BaseURL,
				SecretKey:  secretKey,
				Timeout:    cfg.ProviderTimeout,
				MaxRetries: cfg.ProviderMaxRetries,
				Metrics:    m,
			})
		})
	}
	return reg
}

func bootstrapAdmin(ctx context.Context, cfg *config.Config, users portsrepo.UserRepositoryFacade) error {
	if cfg.BootstrapAdminID == "" {
		return nil
	}
	_, err := users.FindUserByID(ctx, cfg.BootstrapAdminID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	now := time.Now().UTC()
	admin := domain.User{
		UserID:      cfg.BootstrapAdminID,
		Email:       strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail)),
		Name:        "Administrator",
		Permissions: []domain.Permission{domain.PermissionManageLedger, domain.PermissionDisburse},
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     "system",
			LastUpdatedAt: now,
			LastUpdatedBy: "system",
		},
	}
	if err := users.SaveUser(ctx, admin); err != nil && !errors.Is(err, apperrors.ErrDuplicate) {
		return err
	}
	slog.Info("Bootstrap admin user created", slog.String("user_id", admin.UserID))
	return nil
}
