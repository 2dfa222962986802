package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-service/internal/service"
)

// StatsHandler serves the operational dashboard snapshot.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: statsService}
}

// Get handles GET /admin/stats.
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	stats, err := h.stats.Collect(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
