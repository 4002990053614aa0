package services

import (
	"testing"

	"github.com/nouralddin-abdullah/together/models"
	"github.com/nouralddin-abdullah/together/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTeamValidation(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")

	_, err := e.teams.CreateTeam("", "run", models.HabitTypeBuild, 30, false, false, owner.ID)
	assert.Error(t, err)

	_, err = e.teams.CreateTeam("team", "run", "sometimes", 30, false, false, owner.ID)
	assert.Error(t, err)

	_, err = e.teams.CreateTeam("team", "run", models.HabitTypeBuild, 0, false, false, owner.ID)
	assert.Error(t, err)
}

func TestCreateTeamSetsOwnerMembership(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")

	team, err := e.teams.CreateTeam("runners", "morning run", models.HabitTypeBuild, 30, false, false, owner.ID)
	require.NoError(t, err)

	assert.Equal(t, models.TeamStatusPending, team.Status)
	assert.Equal(t, owner.ID, team.OwnerID)
	assert.NotEmpty(t, team.TeamCode)

	var reloaded models.User
	require.NoError(t, testDB.First(&reloaded, owner.ID).Error)
	require.NotNil(t, reloaded.TeamID)
	assert.Equal(t, team.ID, *reloaded.TeamID)

	// One team per user.
	_, err = e.teams.CreateTeam("another", "other habit", models.HabitTypeBuild, 30, false, false, owner.ID)
	assert.Error(t, err)
}

func TestJoinTeamByCode(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")

	team, err := e.teams.CreateTeam("runners", "morning run", models.HabitTypeBuild, 30, false, false, owner.ID)
	require.NoError(t, err)

	joined, err := e.teams.JoinTeam(member.ID, team.TeamCode)
	require.NoError(t, err)
	assert.Equal(t, team.ID, joined.ID)

	members, err := e.teams.GetTeamMembers(team.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = e.teams.JoinTeam(member.ID, team.TeamCode)
	assert.Error(t, err, "joining twice is rejected")

	_, err = e.teams.JoinTeam(member.ID, "NOPE")
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestStartChallenge(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")

	team, err := e.teams.CreateTeam("runners", "morning run", models.HabitTypeBuild, 30, false, false, owner.ID)
	require.NoError(t, err)
	_, err = e.teams.JoinTeam(member.ID, team.TeamCode)
	require.NoError(t, err)

	_, err = e.teams.StartChallenge(member.ID)
	assert.Error(t, err, "only the owner can start")

	started, err := e.teams.StartChallenge(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamStatusActive, started.Status)
	require.NotNil(t, started.StartedAt)

	// Attempt #1 is open and day one is seeded for every member.
	attempt := e.currentAttempt(t, team.ID)
	require.NotNil(t, attempt)
	assert.Equal(t, 1, attempt.AttemptNumber)
	assert.Equal(t, models.AttemptOngoing, attempt.EndReason)

	progress, err := e.attempts.GetDailyProgress(team.ID, utils.DateOf(e.clock.Now()))
	require.NoError(t, err)
	assert.Len(t, progress, 2)

	_, err = e.teams.StartChallenge(owner.ID)
	assert.Error(t, err, "cannot start twice")
}

func TestJoinActiveBuildTeamSeedsTodayRow(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	late := e.createUser(t, "latecomer")
	team := e.createActiveTeam(t, models.HabitTypeBuild, 30, owner)

	_, err := e.teams.JoinTeam(late.ID, team.TeamCode)
	require.NoError(t, err)

	progress, err := e.attempts.GetDailyProgress(team.ID, utils.DateOf(e.clock.Now()))
	require.NoError(t, err)
	assert.Len(t, progress, 2, "joiner gets a pending row for today")
}

func TestLeaveTeam(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")

	team, err := e.teams.CreateTeam("runners", "morning run", models.HabitTypeBuild, 30, false, false, owner.ID)
	require.NoError(t, err)
	_, err = e.teams.JoinTeam(member.ID, team.TeamCode)
	require.NoError(t, err)

	err = e.teams.LeaveTeam(owner.ID)
	assert.Error(t, err, "owner cannot abandon a team with members")

	require.NoError(t, e.teams.LeaveTeam(member.ID))

	var reloaded models.User
	require.NoError(t, testDB.First(&reloaded, member.ID).Error)
	assert.Nil(t, reloaded.TeamID)

	// Last member standing may leave.
	require.NoError(t, e.teams.LeaveTeam(owner.ID))
}

func TestTeamCodesAreUnique(t *testing.T) {
	e := newTestEnv(t)

	codes := make(map[string]bool)
	for i := 0; i < 20; i++ {
		owner := e.createUser(t, "owner")
		team, err := e.teams.CreateTeam("team", "habit", models.HabitTypeBuild, 30, false, false, owner.ID)
		require.NoError(t, err)
		assert.False(t, codes[team.TeamCode])
		codes[team.TeamCode] = true
	}
}
