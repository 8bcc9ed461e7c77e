package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/registra-gov/registra/internal/activity"
	"github.com/registra-gov/registra/internal/app"
	"github.com/registra-gov/registra/internal/auth"
	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/company"
	"github.com/registra-gov/registra/internal/dashboard"
	"github.com/registra-gov/registra/internal/observability"
	"github.com/registra-gov/registra/internal/petition"
	"github.com/registra-gov/registra/internal/platform/cache"
	"github.com/registra-gov/registra/internal/platform/db"
	"github.com/registra-gov/registra/internal/property"
	"github.com/registra-gov/registra/internal/securities"
	"github.com/registra-gov/registra/internal/shared"
	"github.com/registra-gov/registra/internal/users"
	"github.com/registra-gov/registra/internal/vehicle"
	"github.com/registra-gov/registra/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, db.PoolConfig{
		DSN:             cfg.PGDSN,
		MaxConns:        cfg.PGMaxConns,
		MinConns:        cfg.PGMinConns,
		MaxConnLifetime: cfg.PGConnLifetime,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "registra_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()
	guard := authz.Middleware{Logger: logger, Denials: metrics}

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, guard)

	companyRepo := company.NewRepository(dbpool)
	companyService := company.NewService(companyRepo, auditLogger, logger)
	companyHandler := company.NewHandler(logger, companyService, guard)

	propertyRepo := property.NewRepository(dbpool)
	propertyService := property.NewService(propertyRepo, auditLogger, logger)
	propertyHandler := property.NewHandler(logger, propertyService, guard, idempotencyStore)

	vehicleRepo := vehicle.NewRepository(dbpool)
	vehicleService := vehicle.NewService(vehicleRepo, auditLogger, logger)
	vehicleHandler := vehicle.NewHandler(logger, vehicleService, guard, idempotencyStore)

	securitiesRepo := securities.NewRepository(dbpool)
	securitiesService := securities.NewService(securitiesRepo, auditLogger, logger)
	securitiesHandler := securities.NewHandler(logger, securitiesService, guard)

	petitionRepo := petition.NewRepository(dbpool)
	petitionService := petition.NewService(petitionRepo, auditLogger, logger)
	petitionHandler := petition.NewHandler(logger, petitionService, guard)

	activityRepo := activity.NewRepository(dbpool)
	activityHandler := activity.NewHandler(logger, activityRepo, guard)

	dashboardRepo := dashboard.NewRepository(dbpool)
	dashboardService := dashboard.NewService(dashboardRepo)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		Guard:             guard,
		AuthHandler:       authHandler,
		UsersHandler:      usersHandler,
		CompanyHandler:    companyHandler,
		PropertyHandler:   propertyHandler,
		VehicleHandler:    vehicleHandler,
		SecuritiesHandler: securitiesHandler,
		PetitionHandler:   petitionHandler,
		ActivityHandler:   activityHandler,
		DashboardHandler:  dashboardHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
