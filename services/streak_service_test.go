package services

import (
	"testing"

	"github.com/nouralddin-abdullah/together/models"
	"github.com/nouralddin-abdullah/together/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateBuildDay(t *testing.T) {
	members := []models.User{{NickName: "a"}, {NickName: "b"}, {NickName: "c"}}
	members[0].ID = 1
	members[1].ID = 2
	members[2].ID = 3

	outcome := EvaluateBuildDay(members, []models.DailyProgress{
		{UserID: 1, Completed: true},
		{UserID: 2, Completed: false},
	})

	assert.False(t, outcome.Clean)
	require.Len(t, outcome.MissedMembers, 2)
	assert.Equal(t, uint(2), outcome.MissedMembers[0].ID)
	assert.Equal(t, uint(3), outcome.MissedMembers[1].ID)

	outcome = EvaluateBuildDay(members, []models.DailyProgress{
		{UserID: 1, Completed: true},
		{UserID: 2, Completed: true},
		{UserID: 3, Completed: true},
	})
	assert.True(t, outcome.Clean)
	assert.Empty(t, outcome.MissedMembers)
}

func TestApplyCleanDayIncrementsStreak(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner)
	attempt := e.currentAttempt(t, team.ID)

	result, err := e.streaks.ApplyCleanDay(team, attempt, utils.DateOf(e.clock.Now()))
	require.NoError(t, err)

	assert.True(t, result.Counted)
	assert.Equal(t, 1, result.NewStreak)
	assert.False(t, result.Milestone)
	assert.False(t, result.GoalReached)

	reloaded := e.reloadTeam(t, team.ID)
	assert.Equal(t, 1, reloaded.CurrentStreak)
	assert.Equal(t, 1, reloaded.BestStreak)
}

func TestApplyCleanDaySameDateCountsOnce(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner)
	attempt := e.currentAttempt(t, team.ID)
	date := utils.DateOf(e.clock.Now())

	first, err := e.streaks.ApplyCleanDay(team, attempt, date)
	require.NoError(t, err)
	assert.True(t, first.Counted)

	second, err := e.streaks.ApplyCleanDay(team, attempt, date)
	require.NoError(t, err)
	assert.False(t, second.Counted)
	assert.Equal(t, 1, second.NewStreak)

	// Same with a stale attempt snapshot that predates the first count.
	stale := e.currentAttempt(t, team.ID)
	stale.LastCountedDate = ""
	third, err := e.streaks.ApplyCleanDay(e.reloadTeam(t, team.ID), stale, date)
	require.NoError(t, err)
	assert.False(t, third.Counted)

	assert.Equal(t, 1, e.reloadTeam(t, team.ID).CurrentStreak)
}

func TestApplyCleanDayMilestoneEveryFiveDays(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner)
	attempt := e.currentAttempt(t, team.ID)

	var milestones []int
	for day := 1; day <= 6; day++ {
		result, err := e.streaks.ApplyCleanDay(team, attempt, utils.DateOf(e.clock.Now()))
		require.NoError(t, err)
		require.True(t, result.Counted)
		if result.Milestone {
			milestones = append(milestones, result.NewStreak)
		}
		e.nextDay()
	}

	assert.Equal(t, []int{5}, milestones)
	assert.True(t, e.broadcaster.has(EventStreakMilestone))
}

func TestApplyCleanDayCompletesChallengeAtGoal(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 3, owner)
	attempt := e.currentAttempt(t, team.ID)

	for day := 1; day <= 3; day++ {
		result, err := e.streaks.ApplyCleanDay(team, attempt, utils.DateOf(e.clock.Now()))
		require.NoError(t, err)
		assert.Equal(t, day == 3, result.GoalReached)
		e.nextDay()
	}

	reloaded := e.reloadTeam(t, team.ID)
	assert.Equal(t, models.TeamStatusCompleted, reloaded.Status)
	assert.Equal(t, 3, reloaded.CurrentStreak)

	// The final attempt is frozen as completed; nothing ongoing remains.
	assert.Nil(t, e.currentAttempt(t, team.ID))

	attempts, err := e.attempts.GetTeamAttempts(team.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.AttemptCompleted, attempts[0].EndReason)
	assert.Equal(t, 3, attempts[0].DaysReached)
	assert.NotNil(t, attempts[0].EndedAt)

	assert.True(t, e.broadcaster.has(EventChallengeCompleted))
}

func TestApplyMissResetsAndOpensNextAttempt(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "slacker")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner, member)
	attempt := e.currentAttempt(t, team.ID)

	// Two clean days on the books.
	for day := 0; day < 2; day++ {
		_, err := e.streaks.ApplyCleanDay(team, attempt, utils.DateOf(e.clock.Now()))
		require.NoError(t, err)
		e.nextDay()
	}

	outcome := DayOutcome{Clean: false, MissedMembers: []models.User{*member}}
	result, err := e.streaks.ApplyMiss(team, attempt, outcome)
	require.NoError(t, err)

	assert.Equal(t, 1, result.AttemptEnded)
	assert.Equal(t, 2, result.DaysReached)
	assert.Equal(t, 2, result.NewAttemptNumber)

	reloaded := e.reloadTeam(t, team.ID)
	assert.Equal(t, 0, reloaded.CurrentStreak)
	assert.Equal(t, 2, reloaded.BestStreak, "best streak survives the reset")

	attempts, err := e.attempts.GetTeamAttempts(team.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	failed := attempts[0]
	assert.Equal(t, models.AttemptFailed, failed.EndReason)
	assert.Equal(t, 2, failed.DaysReached)
	require.NotNil(t, failed.FailedByUserID)
	assert.Equal(t, member.ID, *failed.FailedByUserID)

	current := attempts[1]
	assert.Equal(t, models.AttemptOngoing, current.EndReason)
	assert.Equal(t, 2, current.AttemptNumber, "attempt numbers stay gapless")
	assert.Equal(t, 0, current.DaysReached)
}

func TestApplyMissTwiceDoesNotDoubleReset(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner)
	attempt := e.currentAttempt(t, team.ID)

	outcome := SlipOutcome(owner, false)

	first, err := e.streaks.ApplyMiss(team, attempt, outcome)
	require.NoError(t, err)
	assert.Equal(t, 2, first.NewAttemptNumber)

	// Second call with the now-stale attempt lands on the settled state.
	second, err := e.streaks.ApplyMiss(e.reloadTeam(t, team.ID), attempt, outcome)
	require.NoError(t, err)
	assert.Equal(t, 2, second.NewAttemptNumber)

	attempts, err := e.attempts.GetTeamAttempts(team.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestApplyMissRejectsCleanOutcome(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner)
	attempt := e.currentAttempt(t, team.ID)

	_, err := e.streaks.ApplyMiss(team, attempt, DayOutcome{Clean: true})
	assert.Error(t, err)
}

func TestApplyMissAnonymousAttribution(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner)
	attempt := e.currentAttempt(t, team.ID)

	_, err := e.streaks.ApplyMiss(team, attempt, SlipOutcome(owner, true))
	require.NoError(t, err)

	attempts, err := e.attempts.GetTeamAttempts(team.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.True(t, attempts[0].WasAnonymous)
	require.NotNil(t, attempts[0].FailedByUserID, "attribution is stored even for anonymous reports")
	assert.Equal(t, owner.ID, *attempts[0].FailedByUserID)
}
