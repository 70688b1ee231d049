// Package main provides the Flowhook API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/dukex/flowhook/pkg/web"
	"github.com/dukex/flowhook/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *matcher.Registry
	validate    *validator.Validate
}

func NewAPI(logger *slog.Logger, persistence persistence.Persistence) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    matcher.NewDefaultRegistry(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// App wires the handlers. The router reloads subscriptions on its own TTL,
// so deploys here do not invalidate any cache.
func (a *API) App() *fiber.App {
	compiler := workflow.NewCompiler(a.logger)
	deployer := workflow.NewDeployer(a.persistence, compiler, nil, a.logger)
	handlers := web.NewAPIHandlers(a.persistence, deployer, compiler, a.registry, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowhook API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Listening", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
