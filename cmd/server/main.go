// @title         authflow API
// @version       1.0
// @description   Username/email/password authentication with stateless bearer tokens.
// @BasePath      /api
// @schemes       http
// @host          localhost:5000
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Authorization token. Accepts "Bearer <JWT>" or "<JWT>".
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	swagger "github.com/gofiber/swagger"

	_ "github.com/artem13815/authflow/docs"

	// internal imports
	"github.com/artem13815/authflow/api/http"
	"github.com/artem13815/authflow/api/http/handlers"
	"github.com/artem13815/authflow/pkg/auth"
	"github.com/artem13815/authflow/pkg/config"
	"github.com/artem13815/authflow/pkg/health"
	"github.com/artem13815/authflow/pkg/health/checkers"
	"github.com/artem13815/authflow/pkg/logging"
	"github.com/artem13815/authflow/pkg/metrics"
	mongorepo "github.com/artem13815/authflow/pkg/repository/mongo"
	pgrepo "github.com/artem13815/authflow/pkg/repository/postgres"
	"github.com/artem13815/authflow/pkg/security/jwt"
	"github.com/artem13815/authflow/pkg/security/throttle"
	"github.com/artem13815/authflow/pkg/storage/mongo"
	"github.com/artem13815/authflow/pkg/storage/postgres"
	"github.com/artem13815/authflow/pkg/storage/redis"
)

func main() {
	// Load configuration from env/.env
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(cfg.LogFormat, cfg.LogLevel, nil)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logging.Error(logger, "server stopped", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var cleanups []func()
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	// User store: document store by default, PostgreSQL on request.
	var (
		userRepo auth.UserRepository
		checks   []health.Checker
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		cleanups = append(cleanups, pool.Close)
		repo, err := pgrepo.NewUserRepository(ctx, pool)
		if err != nil {
			return err
		}
		userRepo = repo
		checks = append(checks, checkers.NewPostgresChecker(pool))
	default:
		client, err := mongo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func() { _ = client.Disconnect(context.Background()) })
		repo, err := mongorepo.NewUserRepository(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			return err
		}
		userRepo = repo
		checks = append(checks, checkers.NewMongoChecker(client))
	}
	logger.Info("user store ready", slog.String("driver", cfg.StoreDriver))

	// Failed-login throttling is shared through Redis when configured.
	var limiter throttle.Limiter = throttle.NewMemoryLimiter(throttle.DefaultPolicy)
	if cfg.RedisAddr != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func() { _ = rdb.Close() })
		limiter = throttle.NewRedisLimiter(rdb, throttle.DefaultPolicy)
		checks = append(checks, checkers.NewRedisChecker(rdb))
	}

	// Token generator
	jwtGen := jwt.NewGenerator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpire)
	m := metrics.New()

	authUC := auth.NewAuthService(userRepo, jwtGen)
	app := http.New(http.Options{
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins(),
		ProxyHeader:    cfg.ProxyHeader,
		TrustedProxies: cfg.TrustedProxyList(),
		Auth:           handlers.NewAuthHandler(authUC, limiter, m, logger),
		Health:         handlers.NewHealthHandler(health.NewService(checks...), logger),
		AuthMiddleware: jwt.NewAuthMiddleware(jwt.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)),
		Metrics:        m.Handler(),
		Swagger:        swagger.HandlerDefault,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("port", cfg.Port))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
