package http

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/artem13815/authflow/api/http/handlers"
	"github.com/artem13815/authflow/api/http/presenter"
	"github.com/artem13815/authflow/pkg/logging"
)

// Options carries everything New needs to assemble the HTTP app.
type Options struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// ProxyHeader carries the client IP behind a reverse proxy. When
	// TrustedProxies is non-empty the header is read only from those peers.
	ProxyHeader    string
	TrustedProxies []string
	Auth           *handlers.AuthHandler
	Health         *handlers.HealthHandler
	AuthMiddleware fiber.Handler
	// Optional extra endpoints mounted at the root, e.g. /metrics or /swagger/*.
	Metrics fiber.Handler
	Swagger fiber.Handler
}

// New builds the Fiber app with the middleware stack and all routes.
func New(opts Options) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := fiber.New(fiber.Config{
		AppName:                 "authflow",
		DisableStartupMessage:   true,
		ErrorHandler:            errorHandler(logger),
		ProxyHeader:             opts.ProxyHeader,
		EnableIPValidation:      opts.ProxyHeader != "",
		EnableTrustedProxyCheck: len(opts.TrustedProxies) > 0,
		TrustedProxies:          opts.TrustedProxies,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logging.Middleware(logger))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(opts.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	Register(app, opts.Auth, opts.Health, opts.AuthMiddleware)

	if opts.Metrics != nil {
		app.Get("/metrics", opts.Metrics)
	}
	if opts.Swagger != nil {
		app.Get("/swagger/*", opts.Swagger)
	}
	return app
}

// Register wires all HTTP routes onto given Fiber app.
func Register(app *fiber.App, auth *handlers.AuthHandler, health *handlers.HealthHandler, authMW fiber.Handler) {
	api := app.Group("/api")

	// Health and readiness endpoints for probes/monitoring
	api.Get("/health", health.Health)
	api.Get("/ready", health.Ready)

	a := api.Group("/auth")
	a.Post("/register", auth.Register)
	a.Post("/login", auth.Login)
	a.Get("/verify", authMW, auth.Verify)
	a.Get("/profile", authMW, auth.Profile)
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return presenter.Error(c, fe.Code, fe.Message)
		}
		logging.Error(logger, "unhandled error", err, "path", c.Path())
		return presenter.Error(c, fiber.StatusInternalServerError, "Internal server error")
	}
}
