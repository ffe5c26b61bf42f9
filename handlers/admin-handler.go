package handler

import (
	"time"

	"github.com/giralibros/giralibros/config"
	"github.com/giralibros/giralibros/observability"
	"github.com/gofiber/fiber/v2"
)

// CleanupPendingUploads is the operator-invoked sweep: deletes staged photos
// older than max_age_hours (default 24) and reports how many were removed.
// Idempotent, meant to be hit on a schedule external to request traffic.
func CleanupPendingUploads(c *fiber.Ctx) error {
	// An unset token disables the endpoint rather than matching empty headers.
	adminToken := config.ConfigDefault("ADMIN_TOKEN", "")
	if adminToken == "" || c.Get("X-Admin-Token") != adminToken {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  "error",
			"message": "You are not authorized!",
			"data":    nil,
		})
	}

	maxAgeHours := c.QueryInt("max_age_hours", 24)
	if maxAgeHours <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "max_age_hours must be positive",
			"data":    nil,
		})
	}

	count, err := getBroker().Sweep(time.Duration(maxAgeHours) * time.Hour)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Sweep failed",
			"data":    nil,
		})
	}

	observability.Log().Infow("manual pending upload sweep", "max_age_hours", maxAgeHours, "removed", count)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Sweep complete",
		"data": fiber.Map{
			"removed": count,
		},
	})
}
