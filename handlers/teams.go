// handlers/teams.go - Team lifecycle HTTP handlers
package handlers

import (
	"log"

	"github.com/nouralddin-abdullah/together/middleware"
	"github.com/nouralddin-abdullah/together/models"

	"github.com/gofiber/fiber/v2"
)

// ================== TEAM LIFECYCLE ==================

// CreateTeam creates a new team with the caller as owner
// POST /api/teams
func CreateTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	var req struct {
		Name               string           `json:"name"`
		HabitName          string           `json:"habit_name"`
		HabitType          models.HabitType `json:"habit_type"`
		WantedStreak       int              `json:"wanted_streak"`
		RequireProof       bool             `json:"require_proof"`
		AllowAnonymousFail bool             `json:"allow_anonymous_fail"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	team, err := teamService.CreateTeam(req.Name, req.HabitName, req.HabitType, req.WantedStreak, req.RequireProof, req.AllowAnonymousFail, userID)
	if err != nil {
		return fail(c, err)
	}

	log.Printf("✅ Team created: %s (code %s)\n", team.Name, team.TeamCode)

	return c.Status(201).JSON(fiber.Map{"success": true, "team": team})
}

// JoinTeam joins a team by invite code
// POST /api/teams/join
func JoinTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	var req struct {
		TeamCode string `json:"team_code"`
	}
	if err := c.BodyParser(&req); err != nil || req.TeamCode == "" {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "team_code is required"})
	}

	team, err := teamService.JoinTeam(userID, req.TeamCode)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "team": team})
}

// StartChallenge transitions the team from pending to active
// POST /api/teams/start
func StartChallenge(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	team, err := teamService.StartChallenge(userID)
	if err != nil {
		return fail(c, err)
	}

	log.Printf("🚀 Challenge started for team %d (%s)\n", team.ID, team.HabitName)

	return c.JSON(fiber.Map{"success": true, "team": team})
}

// GetMyTeam returns the caller's team
// GET /api/teams/mine
func GetMyTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	team, err := teamService.FindUserTeam(userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "team": team})
}

// GetTeamMembers returns the caller's team roster
// GET /api/teams/members
func GetTeamMembers(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	team, err := teamService.FindUserTeam(userID)
	if err != nil {
		return fail(c, err)
	}

	members, err := teamService.GetTeamMembers(team.ID)
	if err != nil {
		return fail(c, err)
	}

	roster := make([]fiber.Map, 0, len(members))
	for _, m := range members {
		roster = append(roster, fiber.Map{
			"id":        m.ID,
			"nick_name": m.NickName,
			"avatar":    m.Avatar,
			"is_owner":  m.ID == team.OwnerID,
		})
	}

	return c.JSON(fiber.Map{"success": true, "members": roster})
}

// LeaveTeam removes the caller from their team
// POST /api/teams/leave
func LeaveTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	if err := teamService.LeaveTeam(userID); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// GetTeamChat returns the team's message history, newest first
// GET /api/teams/chat?limit=50
func GetTeamChat(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	team, err := teamService.FindUserTeam(userID)
	if err != nil {
		return fail(c, err)
	}

	limit := c.QueryInt("limit", 50)
	messages, err := chatService.GetTeamMessages(team.ID, limit)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "messages": messages})
}
