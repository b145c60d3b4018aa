package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"feedbackr/internal/models"
)

const LivenessMessage = "Portfolio & interview feedback API"

// SetupRoutes registers the public API. metricsHandler may be nil.
func SetupRoutes(app *fiber.App, analyze *AnalyzeHandler, metricsHandler fiber.Handler) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": LivenessMessage,
		})
	})

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/analyze-portfolio", analyze.HandlePortfolio)
	api.Post("/analyze-audio", analyze.HandleAudio)

	if metricsHandler != nil {
		app.Get("/metrics", metricsHandler)
	}
}

// ErrorHandler renders errors that escape a handler, such as an oversized body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(models.ErrorResponse{Detail: err.Error()})
}
