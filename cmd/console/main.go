package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/fieldatlas/console/pkg/api"
	"github.com/fieldatlas/console/pkg/auth"
	"github.com/fieldatlas/console/pkg/config"
	"github.com/fieldatlas/console/pkg/handoff"
	"github.com/fieldatlas/console/pkg/httputil"
	"github.com/fieldatlas/console/pkg/middleware"
	"github.com/fieldatlas/console/pkg/observability"
	"github.com/fieldatlas/console/pkg/projects"
	"github.com/fieldatlas/console/pkg/storage"
	"github.com/fieldatlas/console/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting FieldAtlas Console")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// OpenTelemetry is optional and fails startup only when explicitly enabled
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	db, err := storage.OpenPostgres(cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to Postgres")
		os.Exit(1)
	}
	defer db.Close()

	if err := projects.RunMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}
	logger.Info("Database migrations complete")

	storage.StartPoolMetrics(ctx, db, metrics, logger.Named("storage"), 0)

	// Redis shares the rate limit across replicas. Without it we fall back
	// to per-instance token buckets.
	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = storage.NewRedisClient(cfg.Storage)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Redis")
			os.Exit(1)
		}
		defer redisClient.Close()
		logger.Info("Redis connected")
	} else {
		logger.Warn("Redis URL not configured, falling back to in-process rate limiting")
	}

	authenticator, err := buildAuthenticator(ctx, cfg.Auth)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize authenticator")
		os.Exit(1)
	}
	logger.WithField("mode", cfg.Auth.Mode).Info("Authenticator ready")

	projectStore := projects.NewStore(db)
	userStore := users.NewStore(db)
	recorder := auth.NewAuditRecorder(db, logger)

	sweeper, err := recorder.StartRetentionSweep(cfg.Auth.AuditRetention)
	if err != nil {
		logger.WithError(err).Error("Failed to start audit retention sweep")
		os.Exit(1)
	}
	defer sweeper.Stop()

	issuer := handoff.NewIssuer(
		projectStore,
		userStore,
		projectStore,
		[]byte(cfg.Handoff.SigningSecret),
		logger,
		metrics,
	)
	if cfg.Handoff.SigningSecret == "" {
		logger.Warn("Handoff signing secret not configured, token issuance will be rejected")
	}

	var rateLimiter api.RateLimiter
	if redisClient != nil {
		rateLimiter = middleware.NewDistributedRateLimitMiddleware(redisClient, metrics)
	} else {
		inProcess := middleware.NewRateLimitMiddleware(metrics)
		inProcess.StartCleanup(ctx)
		rateLimiter = inProcess
	}

	server := api.NewServer(api.Deps{
		Issuer:         issuer,
		ProjectStore:   projectStore,
		UserStore:      userStore,
		Recorder:       recorder,
		Logger:         logger,
		AuthMiddleware: middleware.NewAuthMiddleware(authenticator, false),
		RateLimiter:    rateLimiter,
	})

	var handler http.Handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		observability.HTTPMetricsMiddleware(metrics),
		httputil.MaxBytesMiddleware(1024*1024),
	)(server)
	if cfg.Observability.OTelEnabled {
		otelMetrics, err := observability.NewOTelMetrics()
		if err != nil {
			logger.WithError(err).Error("Failed to create OpenTelemetry instruments")
			os.Exit(1)
		}
		handler = observability.OTelHTTPMetricsMiddleware(otelMetrics)(handler)
		handler = otelhttp.NewHandler(handler, "console.api")
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.RegisterServer("api", apiServer)
	shutdown.RegisterServer("health", healthServer)
	shutdown.RegisterCleanup("otel", func(sctx context.Context) error {
		return observability.ShutdownOTel(sctx, otelProviders, logger)
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return shutdown.Wait(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

// buildAuthenticator selects the session verifier from configuration.
func buildAuthenticator(ctx context.Context, cfg config.AuthConfig) (auth.Authenticator, error) {
	switch cfg.Mode {
	case "oidc":
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return auth.NewOIDCAuthenticator(initCtx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
	default:
		return auth.NewSessionAuthenticator([]byte(cfg.SessionSecret), cfg.SessionAudience), nil
	}
}
