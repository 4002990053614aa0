// handlers/habits.go - Check-in and slip report HTTP handlers
package handlers

import (
	"github.com/nouralddin-abdullah/together/middleware"

	"github.com/gofiber/fiber/v2"
)

// CheckIn records the caller's daily completion (BUILD teams)
// POST /api/habits/check-in
func CheckIn(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	var req struct {
		ProofURL  string `json:"proof_url"`
		ProofType string `json:"proof_type"`
	}
	_ = c.BodyParser(&req)

	result, err := habitService.CheckIn(userID, req.ProofURL, req.ProofType)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "result": result})
}

// ReportSlip records that the caller broke the habit (QUIT teams)
// POST /api/habits/report-slip
func ReportSlip(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	var req struct {
		Anonymous bool   `json:"anonymous"`
		Note      string `json:"note"`
	}
	_ = c.BodyParser(&req)

	result, err := habitService.ReportSlip(userID, req.Anonymous, req.Note)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "result": result})
}

// GetMyTodayStatus returns the caller's own state for today
// GET /api/habits/me/today
func GetMyTodayStatus(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	status, err := habitService.GetMyTodayStatus(userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "status": status})
}

// GetTeamTodayStatus returns every member's state for today
// GET /api/habits/team/today
func GetTeamTodayStatus(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	status, err := habitService.GetTeamTodayStatus(userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "status": status})
}
