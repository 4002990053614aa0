// handlers/stats.go - Statistics HTTP handlers
package handlers

import (
	"strconv"

	"github.com/nouralddin-abdullah/together/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetTeamStats returns aggregated stats for the caller's team
// GET /api/stats/team
func GetTeamStats(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	stats, err := statsService.GetTeamStats(userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "stats": stats})
}

// GetMyStats returns the caller's personal stats
// GET /api/stats/me
func GetMyStats(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	stats, err := statsService.GetMyStats(userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "stats": stats})
}

// GetTeamAttemptHistory returns the team's attempt history
// GET /api/stats/attempts
func GetTeamAttemptHistory(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	attempts, err := statsService.GetTeamAttempts(userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "attempts": attempts})
}

// GetAttemptDetail returns one attempt with per-day progress
// GET /api/stats/attempts/:id
func GetAttemptDetail(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	attemptID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid attempt id"})
	}

	detail, err := statsService.GetAttemptDetail(userID, uint(attemptID))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "attempt": detail})
}
