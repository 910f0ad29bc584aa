package handlers

import (
	"time"

	"projectwatch/internal/database"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// HealthHandler reports whether the active schema's pool is reachable.
type HealthHandler struct {
	registry *database.Registry
}

func NewHealthHandler(registry *database.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	if err := h.registry.Ping(c.UserContext()); err != nil {
		log.WithError(err).Warn("Health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
		"schema": h.registry.ActiveSchema(),
		"time":   time.Now().UTC(),
	})
}
