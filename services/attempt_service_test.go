package services

import (
	"testing"
	"time"

	"github.com/nouralddin-abdullah/together/models"
	"github.com/nouralddin-abdullah/together/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDailyProgressIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner, member)
	attempt := e.currentAttempt(t, team.ID)
	today := utils.DateOf(e.clock.Now())

	ids := []uint{owner.ID, member.ID}
	require.NoError(t, e.attempts.CreateDailyProgressForMembers(team.ID, attempt.ID, ids, today))
	require.NoError(t, e.attempts.CreateDailyProgressForMembers(team.ID, attempt.ID, ids, today))

	progress, err := e.attempts.GetDailyProgress(team.ID, today)
	require.NoError(t, err)
	assert.Len(t, progress, 2)
}

func TestSeedDoesNotClearCompletedRows(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner)
	attempt := e.currentAttempt(t, team.ID)
	today := utils.DateOf(e.clock.Now())

	_, err := e.attempts.MarkDailyProgressComplete(team.ID, attempt.ID, owner.ID, today, "", "")
	require.NoError(t, err)

	require.NoError(t, e.attempts.CreateDailyProgressForMembers(team.ID, attempt.ID, []uint{owner.ID}, today))

	progress, err := e.attempts.GetDailyProgress(team.ID, today)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.True(t, progress[0].Completed)
}

func TestMarkDailyProgressCompleteKeepsFirstTimestamp(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner)
	attempt := e.currentAttempt(t, team.ID)
	today := utils.DateOf(e.clock.Now())

	first, err := e.attempts.MarkDailyProgressComplete(team.ID, attempt.ID, owner.ID, today, "", "")
	require.NoError(t, err)

	e.clock.Advance(2 * time.Hour)
	second, err := e.attempts.MarkDailyProgressComplete(team.ID, attempt.ID, owner.ID, today, "", "")
	require.NoError(t, err)

	assert.Equal(t, first.CompletedAt.Unix(), second.CompletedAt.Unix())
}

func TestOnlyOneOngoingAttemptPerTeam(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner)

	// Attempt #1 is already ongoing; the partial unique index rejects a second.
	_, err := e.attempts.CreateAttempt(team.ID, 2)
	assert.Error(t, err)

	attempts, err := e.attempts.GetTeamAttempts(team.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestHasSlipsOnDate(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner)
	attempt := e.currentAttempt(t, team.ID)
	today := utils.DateOf(e.clock.Now())

	hadSlips, err := e.attempts.HasSlipsOnDate(team.ID, today)
	require.NoError(t, err)
	assert.False(t, hadSlips)

	_, err = e.attempts.CreateSlipReport(team.ID, owner.ID, attempt.ID, false, "")
	require.NoError(t, err)

	hadSlips, err = e.attempts.HasSlipsOnDate(team.ID, today)
	require.NoError(t, err)
	assert.True(t, hadSlips)

	hadSlips, err = e.attempts.HasSlipsOnDate(team.ID, utils.Yesterday(e.clock.Now()))
	require.NoError(t, err)
	assert.False(t, hadSlips)
}
