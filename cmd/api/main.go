package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/dlool-api/api/swagger"
	"github.com/noah-isme/dlool-api/internal/handler"
	"github.com/noah-isme/dlool-api/internal/middleware"
	"github.com/noah-isme/dlool-api/internal/repository"
	"github.com/noah-isme/dlool-api/internal/service"
	"github.com/noah-isme/dlool-api/pkg/changefeed"
	"github.com/noah-isme/dlool-api/pkg/config"
	"github.com/noah-isme/dlool-api/pkg/database"
	"github.com/noah-isme/dlool-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/dlool-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/dlool-api/pkg/middleware/requestid"
)

// @title Dlool API
// @version 1.0.0
// @description School homework backend: accounts, schools, classes and class signup requests
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB); err != nil {
			return err
		}
	}

	feed, closeFeed, err := newFeed(cfg, logr)
	if err != nil {
		return err
	}
	defer closeFeed()

	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	schools := repository.NewSchoolRepository(db)
	classes := repository.NewClassRepository(db)
	requests := repository.NewSignupRequestRepository(db, metrics)

	audit := service.NewAuditService(repository.NewAuditRepository(db), service.AuditConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: 200 * time.Millisecond,
	}, metrics, logr.Named("audit"))
	audit.Start(ctx)
	defer audit.Stop()

	validator := service.NewValidator()
	hasher := service.NewBcryptHasher(cfg.Security.BcryptCost)

	authSvc := service.NewAuthService(users, schools, classes, hasher, validator, audit, logr.Named("auth"), service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	registration := service.NewRegistrationService(service.RegistrationDeps{
		Users:     users,
		Schools:   schools,
		Classes:   classes,
		Requests:  requests,
		Hasher:    hasher,
		Validator: validator,
		Feed:      feed,
		Audit:     audit,
		Metrics:   metrics,
		Logger:    logr.Named("registration"),
	})
	relay := service.NewSignupRelayService(requests, feed, metrics, logr.Named("relay"))
	org := service.NewOrgService(schools, classes, validator, audit, logr.Named("org"))

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:           handler.NewAuthHandler(authSvc, registration),
		SignupRequests: handler.NewSignupRequestHandler(registration, relay, cfg.ChangeFeed.SSEHeartbeat, logr.Named("sse")),
		Org:            handler.NewOrgHandler(org),
		Metrics:        handler.NewMetricsHandler(metrics, db),
	}, middleware.JWT(authSvc))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("changefeed", cfg.ChangeFeed.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// open event streams never go idle
		logr.Warn("graceful shutdown incomplete, closing connections", zap.Error(err))
		_ = srv.Close()
	}
	return nil
}

func newFeed(cfg *config.Config, logr *zap.Logger) (changefeed.Feed, func(), error) {
	if cfg.ChangeFeed.Driver == config.ChangeFeedLocal {
		logr.Warn("using in-process change feed; event streams only see writes made by this instance")
		feed := changefeed.NewLocalFeed()
		return feed, func() { _ = feed.Close() }, nil
	}

	client, err := changefeed.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return changefeed.NewRedisFeed(client, "dlool"), func() { _ = client.Close() }, nil
}
