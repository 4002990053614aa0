package services

import (
	"testing"

	"github.com/nouralddin-abdullah/together/models"
	"github.com/nouralddin-abdullah/together/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReconcileCountsCleanDay(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner, member)
	attempt := e.currentAttempt(t, team.ID)
	day0 := utils.DateOf(e.clock.Now())

	// Both members completed, but nothing counted the day yet.
	for _, u := range []*models.User{owner, member} {
		_, err := e.attempts.MarkDailyProgressComplete(team.ID, attempt.ID, u.ID, day0, "", "")
		require.NoError(t, err)
	}

	e.nextDay()
	report := e.midnight.RunBuildCheck(day0)

	assert.Equal(t, 1, report.Teams)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, e.reloadTeam(t, team.ID).CurrentStreak)
}

func TestBuildReconcileMissResets(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner, member)
	day0 := utils.DateOf(e.clock.Now())

	// Only the owner checked in.
	_, err := e.habits.CheckIn(owner.ID, "", "")
	require.NoError(t, err)

	e.nextDay()
	report := e.midnight.RunBuildCheck(day0)
	assert.Equal(t, 1, report.Processed)

	attempts, err := e.attempts.GetTeamAttempts(team.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	failed := attempts[0]
	assert.Equal(t, models.AttemptFailed, failed.EndReason)
	require.NotNil(t, failed.FailedByUserID)
	assert.Equal(t, member.ID, *failed.FailedByUserID)

	assert.Equal(t, 0, e.reloadTeam(t, team.ID).CurrentStreak)
	assert.True(t, e.broadcaster.has(EventStreakReset))
}

func TestBuildReconcileRerunIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner, member)
	attempt := e.currentAttempt(t, team.ID)
	day0 := utils.DateOf(e.clock.Now())

	for _, u := range []*models.User{owner, member} {
		_, err := e.attempts.MarkDailyProgressComplete(team.ID, attempt.ID, u.ID, day0, "", "")
		require.NoError(t, err)
	}

	e.nextDay()
	e.midnight.RunBuildCheck(day0)
	e.midnight.RunBuildCheck(day0)

	assert.Equal(t, 1, e.reloadTeam(t, team.ID).CurrentStreak, "re-run must not double count")
}

func TestBuildReconcileRerunAfterResetIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner, member)
	day0 := utils.DateOf(e.clock.Now())

	e.nextDay()
	e.midnight.RunBuildCheck(day0)
	e.midnight.RunBuildCheck(day0)

	// One reset only: the replacement attempt started after day0 and is
	// untouched by the second run.
	attempts, err := e.attempts.GetTeamAttempts(team.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
	assert.Equal(t, 2, attempts[1].AttemptNumber)
}

func TestBuildReconcileSeedsTodayRows(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner, member)
	day0 := utils.DateOf(e.clock.Now())

	e.nextDay()
	e.midnight.RunBuildCheck(day0)

	today := utils.DateOf(e.clock.Now())
	progress, err := e.attempts.GetDailyProgress(team.ID, today)
	require.NoError(t, err)
	assert.Len(t, progress, 2)
	for _, p := range progress {
		assert.False(t, p.Completed)
	}
}

func TestBuildReconcileSkipsCompletedTeams(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 1, owner)
	day0 := utils.DateOf(e.clock.Now())

	_, err := e.habits.CheckIn(owner.ID, "", "")
	require.NoError(t, err)
	require.Equal(t, models.TeamStatusCompleted, e.reloadTeam(t, team.ID).Status)

	e.nextDay()
	report := e.midnight.RunBuildCheck(day0)

	assert.Equal(t, 0, report.Teams)
	assert.Equal(t, models.TeamStatusCompleted, e.reloadTeam(t, team.ID).Status)
}

func TestQuitReconcileCountsCleanDay(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner)
	day0 := utils.DateOf(e.clock.Now())

	e.nextDay()
	report := e.midnight.RunQuitCheck(day0)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, e.reloadTeam(t, team.ID).CurrentStreak)
}

func TestQuitReconcileSkipsSlippedDay(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner)
	day0 := utils.DateOf(e.clock.Now())

	// Slip settles the day in real time and opens attempt #2 the same day.
	_, err := e.habits.ReportSlip(owner.ID, false, "")
	require.NoError(t, err)

	e.nextDay()
	report := e.midnight.RunQuitCheck(day0)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, e.reloadTeam(t, team.ID).CurrentStreak,
		"a day with a slip never counts for the attempt that replaced the failed one")
}

func TestQuitReconcileErrorIsolation(t *testing.T) {
	e := newTestEnv(t)
	owner1 := e.createUser(t, "owner1")
	owner2 := e.createUser(t, "owner2")
	broken := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner1)
	healthy := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner2)
	day0 := utils.DateOf(e.clock.Now())

	// Corrupt the first team: active with no ongoing attempt.
	require.NoError(t, testDB.Model(&models.TeamAttempt{}).
		Where("team_id = ?", broken.ID).
		Update("end_reason", models.AttemptFailed).Error)

	e.nextDay()
	report := e.midnight.RunQuitCheck(day0)

	assert.Equal(t, 2, report.Teams)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, e.reloadTeam(t, healthy.ID).CurrentStreak)
	assert.Equal(t, 0, e.reloadTeam(t, broken.ID).CurrentStreak)
}

func TestRunAllDefaultsToYesterday(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	team := e.createActiveTeam(t, models.HabitTypeQuit, 30, owner)

	e.nextDay()
	build, quit, err := e.midnight.RunAll("")
	require.NoError(t, err)

	yesterday := utils.Yesterday(e.clock.Now())
	assert.Equal(t, yesterday, build.Date)
	assert.Equal(t, yesterday, quit.Date)
	assert.Equal(t, 1, e.reloadTeam(t, team.ID).CurrentStreak)
}

func TestRunAllRejectsMalformedDateOverride(t *testing.T) {
	e := newTestEnv(t)

	_, _, err := e.midnight.RunAll("yesterday")
	assert.Error(t, err)

	_, _, err = e.midnight.RunAll("2025-13-40")
	assert.Error(t, err)
}
