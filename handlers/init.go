// handlers/init.go - Handler wiring
package handlers

import (
	"errors"

	"github.com/nouralddin-abdullah/together/database"
	"github.com/nouralddin-abdullah/together/services"

	"github.com/gofiber/fiber/v2"
)

var (
	teamService     *services.TeamService
	attemptService  *services.AttemptService
	streakService   *services.StreakService
	chatService     *services.ChatService
	habitService    *services.HabitService
	statsService    *services.StatsService
	midnightService *services.MidnightService
)

// Init builds the service graph. Must run after database.InitDB.
func Init(clock services.Clock) *services.MidnightService {
	db := database.GetDB()
	if db == nil {
		panic("Database not initialized before handlers.Init")
	}

	attemptService = services.NewAttemptService(db, clock)
	teamService = services.NewTeamService(db, attemptService, clock)
	chatService = services.NewChatService(db, TeamHub(), clock)
	streakService = services.NewStreakService(db, teamService, attemptService, chatService, clock)
	habitService = services.NewHabitService(db, teamService, attemptService, streakService, chatService, clock)
	statsService = services.NewStatsService(db, teamService, attemptService, clock)
	midnightService = services.NewMidnightService(teamService, attemptService, streakService, clock)

	return midnightService
}

// errStatus maps service errors onto HTTP status codes: not-found sentinels
// to 404, consistency failures to 500, everything else is caller error.
func errStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrAttemptNotFound):
		return 404
	case errors.Is(err, services.ErrNoOngoingAttempt):
		return 500
	default:
		return 400
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(errStatus(err)).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
