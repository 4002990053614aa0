// handlers/reconcile.go - Manual midnight reconciliation trigger
package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// RunReconcile runs the midnight checks on demand. An explicit date
// (YYYY-MM-DD) overrides the default "yesterday"; used for backfills after
// scheduler outages.
// POST /api/admin/reconcile
func RunReconcile(c *fiber.Ctx) error {
	var req struct {
		Date string `json:"date"`
	}
	_ = c.BodyParser(&req)

	log.Printf("🔧 Manual reconciliation requested (date override: %q)\n", req.Date)

	build, quit, err := midnightService.RunAll(req.Date)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"build":   build,
		"quit":    quit,
	})
}
