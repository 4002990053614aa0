package services

import (
	"testing"

	"github.com/nouralddin-abdullah/together/models"
	"github.com/nouralddin-abdullah/together/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamStatsAfterFailAndRestart(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner, member)
	attempt := e.currentAttempt(t, team.ID)

	// Three clean days, then the member slips.
	for day := 0; day < 3; day++ {
		_, err := e.streaks.ApplyCleanDay(team, attempt, utils.DateOf(e.clock.Now()))
		require.NoError(t, err)
		e.nextDay()
	}
	_, err := e.habits.ReportSlip(member.ID, false, "")
	require.NoError(t, err)

	stats, err := e.stats.GetTeamStats(owner.ID)
	require.NoError(t, err)

	assert.Equal(t, team.ID, stats.Team.ID)
	assert.Equal(t, models.HabitTypeQuit, stats.Team.HabitType)
	assert.Equal(t, 30, stats.Team.Goal)

	assert.Equal(t, 0, stats.Streak.Current)
	assert.Equal(t, 3, stats.Streak.Best)
	assert.Equal(t, 30, stats.Streak.Remaining)

	require.NotNil(t, stats.CurrentAttempt)
	assert.Equal(t, 2, stats.CurrentAttempt.Number)

	assert.Equal(t, 2, stats.History.TotalAttempts)
	assert.Equal(t, 3, stats.History.LongestStreak)
	require.Len(t, stats.History.Attempts, 2)
	assert.Equal(t, models.AttemptFailed, stats.History.Attempts[0].Result)
	require.NotNil(t, stats.History.Attempts[0].FailedByNickName)
	assert.Equal(t, member.NickName, *stats.History.Attempts[0].FailedByNickName)

	require.Len(t, stats.MemberStats, 2)
	for _, ms := range stats.MemberStats {
		if ms.UserID == member.ID {
			assert.Equal(t, 1, ms.CausedResets)
		} else {
			assert.Equal(t, 0, ms.CausedResets)
		}
	}
}

func TestTeamStatsHidesAnonymousReporter(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	e.createActiveTeam(t, models.HabitTypeQuit, 30, owner)

	_, err := e.habits.ReportSlip(owner.ID, true, "")
	require.NoError(t, err)

	stats, err := e.stats.GetTeamStats(owner.ID)
	require.NoError(t, err)

	require.Len(t, stats.History.Attempts, 2)
	failed := stats.History.Attempts[0]
	assert.True(t, failed.WasAnonymous)
	assert.Nil(t, failed.FailedByNickName, "anonymous attribution never leaves the stats API")
}

func TestMyStats(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner, member)
	attempt := e.currentAttempt(t, team.ID)

	for day := 0; day < 2; day++ {
		_, err := e.streaks.ApplyCleanDay(team, attempt, utils.DateOf(e.clock.Now()))
		require.NoError(t, err)
		e.nextDay()
	}
	_, err := e.habits.ReportSlip(member.ID, false, "")
	require.NoError(t, err)

	mine, err := e.stats.GetMyStats(owner.ID)
	require.NoError(t, err)
	require.NotNil(t, mine.TeamInfo)
	assert.Equal(t, "owner", mine.TeamInfo.Role)
	assert.Equal(t, 0, mine.TeamInfo.CurrentStreak)
	assert.Equal(t, 2, mine.TeamInfo.BestStreak)
	require.NotNil(t, mine.MyContribution)
	assert.Equal(t, 0, mine.MyContribution.CausedTeamResets)

	theirs, err := e.stats.GetMyStats(member.ID)
	require.NoError(t, err)
	assert.Equal(t, "member", theirs.TeamInfo.Role)
	assert.Equal(t, 1, theirs.MyContribution.CausedTeamResets)
}

func TestMyStatsWithoutTeam(t *testing.T) {
	e := newTestEnv(t)
	loner := e.createUser(t, "loner")

	stats, err := e.stats.GetMyStats(loner.ID)
	require.NoError(t, err)
	assert.Nil(t, stats.TeamInfo)
	assert.Nil(t, stats.MyContribution)
}

func TestAttemptDetail(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner, member)

	_, err := e.habits.CheckIn(owner.ID, "", "")
	require.NoError(t, err)

	attempt := e.currentAttempt(t, team.ID)
	detail, err := e.stats.GetAttemptDetail(owner.ID, attempt.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, detail.AttemptNumber)
	assert.Equal(t, models.AttemptOngoing, detail.EndReason)
	require.Len(t, detail.DailyProgress, 1)
	assert.Len(t, detail.DailyProgress[0].Members, 2)

	_, err = e.stats.GetAttemptDetail(owner.ID, 99999)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}
