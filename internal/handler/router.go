package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/ferranti/dex-swap-engine/internal/engine"
	"github.com/ferranti/dex-swap-engine/internal/platform/observability"
)

// Register mounts all API routes on the fiber app.
func Register(app *fiber.App, logger *observability.Logger, metrics *observability.Metrics, orchestrator *engine.Orchestrator, reader PoolStateReader) {
	quoteHandler := NewQuoteHandler(logger, metrics, orchestrator)
	rangeHandler := NewRangeHandler(logger, metrics, reader)
	positionHandler := NewPositionHandler(logger, metrics, reader)

	v1 := app.Group("/v1")
	v1.Post("/quote", quoteHandler.Handle())
	v1.Post("/range", rangeHandler.Handle())
	v1.Post("/position", positionHandler.Handle())

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}
