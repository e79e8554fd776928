package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/crms-ng/crms-backend/internal/services"
)

// HealthHandler reports service and database status for monitoring.
type HealthHandler struct {
	db       *gorm.DB // nil when running on the memory store
	sessions *services.SessionStore
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(db *gorm.DB, sessions *services.SessionStore) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions}
}

// Check is the monitoring endpoint.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "healthy"
	statusCode := fiber.StatusOK

	dbHealthy := true
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbHealthy = false
			status = "unhealthy"
			statusCode = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status": status,
		"services": fiber.Map{
			"database":        dbHealthy,
			"active_sessions": h.sessions.ActiveCount(),
		},
	})
}
