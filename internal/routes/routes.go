package routes

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/crms-ng/crms-backend/internal/handlers"
	"github.com/crms-ng/crms-backend/internal/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, ussdHandler *handlers.USSDHandler, adminHandler *handlers.AdminHandler, healthHandler *handlers.HealthHandler) {

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "CRMS USSD Gateway",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":    "/health",
				"webhook":   "/webhook/ussd",
				"test_ussd": "/test/ussd",
				"admin":     "/admin",
			},
		})
	})

	app.Get("/health", healthHandler.Check)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// USSD gateway webhook - signature validation only when a secret is
	// configured (and never in development)
	if os.Getenv("ENVIRONMENT") == "development" {
		webhooks.Post("/ussd", ussdHandler.HandleWebhook)
	} else {
		webhooks.Post("/ussd", middleware.ValidateGatewaySignature(), ussdHandler.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if os.Getenv("ENVIRONMENT") == "development" {
		app.Post("/test/ussd", ussdHandler.HandleTestWebhook)
	}

	// ========== ADMIN ROUTES ==========
	app.Post("/admin/login", adminHandler.Login)

	admin := app.Group("/admin", middleware.RequireAdminJWT())
	admin.Post("/officers", adminHandler.CreateOfficer)
	admin.Get("/officers/:id/stats", adminHandler.OfficerStats)
	admin.Get("/officers/:id/abuse", adminHandler.OfficerAbuseScan)
}
