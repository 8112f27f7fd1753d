package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fixia-app/FixiaCore/internal/pkg/metrics/counter"
	"github.com/fixia-app/FixiaCore/internal/pkg/statistics"
)

// AdminStatsController serves platform aggregates and notification delivery
// counters to operators.
type AdminStatsController struct{}

func NewAdminStatsController() *AdminStatsController {
	return &AdminStatsController{}
}

// HandlePlatformStats returns cached platform aggregates plus the live
// delivery counters.
func (sc *AdminStatsController) HandlePlatformStats(c *fiber.Ctx) error {
	delivery, err := counter.Read()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to read delivery counters"})
	}

	return c.JSON(fiber.Map{
		"platform": statistics.GetPlatformStats(),
		"delivery": delivery,
	})
}
