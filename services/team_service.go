// services/team_service.go - Team lifecycle and roster
package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/nouralddin-abdullah/together/models"
	"github.com/nouralddin-abdullah/together/utils"

	"gorm.io/gorm"
)

type TeamService struct {
	db         *gorm.DB
	attemptSvc *AttemptService
	clock      Clock
}

func NewTeamService(db *gorm.DB, attemptSvc *AttemptService, clock Clock) *TeamService {
	return &TeamService{db: db, attemptSvc: attemptSvc, clock: clock}
}

// ================== TEAM CRUD OPERATIONS ==================

// CreateTeam creates a new pending team with the user as owner.
func (s *TeamService) CreateTeam(name, habitName string, habitType models.HabitType, wantedStreak int, requireProof, allowAnonymousFail bool, ownerID uint) (*models.Team, error) {
	if name == "" || habitName == "" {
		return nil, errors.New("team name and habit name are required")
	}
	if habitType != models.HabitTypeBuild && habitType != models.HabitTypeQuit {
		return nil, errors.New("habit type must be build or quit")
	}
	if wantedStreak <= 0 {
		return nil, errors.New("wanted streak must be greater than 0")
	}

	var owner models.User
	if err := s.db.First(&owner, ownerID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	if owner.TeamID != nil {
		return nil, errors.New("you already belong to a team")
	}

	team := &models.Team{
		Name:               name,
		TeamCode:           s.generateUniqueTeamCode(),
		HabitName:          habitName,
		HabitType:          habitType,
		Status:             models.TeamStatusPending,
		WantedStreak:       wantedStreak,
		RequireProof:       requireProof,
		AllowAnonymousFail: allowAnonymousFail,
		OwnerID:            ownerID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).Where("id = ?", ownerID).
			Update("team_id", team.ID).Error
	})

	if err != nil {
		return nil, err
	}

	return team, nil
}

// JoinTeam adds a user to a team via invite code. Joining an active BUILD
// team also seeds the member's progress row for the current day so the
// midnight check sees them.
func (s *TeamService) JoinTeam(userID uint, teamCode string) (*models.Team, error) {
	var team models.Team
	if err := s.db.Where("team_code = ?", teamCode).First(&team).Error; err != nil {
		return nil, ErrTeamNotFound
	}

	if team.Status == models.TeamStatusCompleted {
		return nil, errors.New("this team already completed its challenge")
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	if user.TeamID != nil {
		if *user.TeamID == team.ID {
			return nil, errors.New("already a member of this team")
		}
		return nil, errors.New("you already belong to a team")
	}

	if err := s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("team_id", team.ID).Error; err != nil {
		return nil, err
	}

	if team.Status == models.TeamStatusActive && team.HabitType == models.HabitTypeBuild {
		attempt, err := s.attemptSvc.GetCurrentAttempt(team.ID)
		if err != nil {
			return nil, err
		}
		if attempt != nil {
			today := utils.DateOf(s.clock.Now())
			if err := s.attemptSvc.CreateDailyProgressForMembers(team.ID, attempt.ID, []uint{userID}, today); err != nil {
				return nil, err
			}
		}
	}

	return &team, nil
}

// LeaveTeam removes a user from their team. The owner must transfer the team
// away (or be its only member) before leaving.
func (s *TeamService) LeaveTeam(userID uint) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return ErrUserNotFound
	}
	if user.TeamID == nil {
		return ErrNotInTeam
	}

	var team models.Team
	if err := s.db.First(&team, *user.TeamID).Error; err != nil {
		return ErrTeamNotFound
	}

	if team.OwnerID == userID {
		var others int64
		s.db.Model(&models.User{}).
			Where("team_id = ? AND id <> ?", team.ID, userID).
			Count(&others)
		if others > 0 {
			return errors.New("team owner must transfer ownership before leaving")
		}
	}

	return s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("team_id", nil).Error
}

// ================== CHALLENGE LIFECYCLE ==================

// StartChallenge transitions a pending team to active, opens attempt #1 and,
// for BUILD habits, seeds day-one progress rows for every member.
func (s *TeamService) StartChallenge(ownerID uint) (*models.Team, error) {
	team, err := s.FindUserTeam(ownerID)
	if err != nil {
		return nil, err
	}

	if team.OwnerID != ownerID {
		return nil, errors.New("only the team owner can start the challenge")
	}
	if team.Status != models.TeamStatusPending {
		return nil, errors.New("challenge already started")
	}

	now := s.clock.Now()
	var attempt *models.TeamAttempt

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Team{}).Where("id = ?", team.ID).
			Updates(map[string]interface{}{
				"status":     models.TeamStatusActive,
				"started_at": now,
			}).Error; err != nil {
			return err
		}

		attempt, err = s.attemptSvc.createAttemptTx(tx, team.ID, 1)
		return err
	})

	if err != nil {
		return nil, err
	}

	team.Status = models.TeamStatusActive
	team.StartedAt = &now

	if team.HabitType == models.HabitTypeBuild {
		members, err := s.GetTeamMembers(team.ID)
		if err != nil {
			return nil, err
		}
		memberIDs := make([]uint, 0, len(members))
		for _, m := range members {
			memberIDs = append(memberIDs, m.ID)
		}
		if err := s.attemptSvc.CreateDailyProgressForMembers(team.ID, attempt.ID, memberIDs, utils.DateOf(s.clock.Now())); err != nil {
			return nil, err
		}
	}

	return team, nil
}

// ================== LOOKUPS ==================

// FindByID retrieves a team by ID.
func (s *TeamService) FindByID(teamID uint) (*models.Team, error) {
	var team models.Team
	if err := s.db.First(&team, teamID).Error; err != nil {
		return nil, ErrTeamNotFound
	}
	return &team, nil
}

// FindUserTeam returns the team the user belongs to.
func (s *TeamService) FindUserTeam(userID uint) (*models.Team, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	if user.TeamID == nil {
		return nil, ErrNotInTeam
	}

	return s.FindByID(*user.TeamID)
}

// FindActiveTeamsByHabitType lists every active team of one habit type.
// The midnight job iterates this.
func (s *TeamService) FindActiveTeamsByHabitType(habitType models.HabitType) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.Where("status = ? AND habit_type = ?", models.TeamStatusActive, habitType).
		Find(&teams).Error

	return teams, err
}

// GetTeamMembers returns the current roster of a team.
func (s *TeamService) GetTeamMembers(teamID uint) ([]models.User, error) {
	var members []models.User
	err := s.db.Where("team_id = ?", teamID).
		Order("id ASC").
		Find(&members).Error

	return members, err
}

// IsTeamMember checks whether a user belongs to a team.
func (s *TeamService) IsTeamMember(userID, teamID uint) bool {
	var count int64
	s.db.Model(&models.User{}).
		Where("id = ? AND team_id = ?", userID, teamID).
		Count(&count)
	return count > 0
}

// ================== STREAK COUNTER WRITES ==================
// Only the streak engine calls these; nothing else writes the counters.

// UpdateTeamStreak sets the current streak and raises the best streak when
// the new value passes it.
func (s *TeamService) UpdateTeamStreak(teamID uint, newStreak int) error {
	return s.updateTeamStreakTx(s.db, teamID, newStreak)
}

func (s *TeamService) updateTeamStreakTx(tx *gorm.DB, teamID uint, newStreak int) error {
	var team models.Team
	if err := tx.First(&team, teamID).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{"current_streak": newStreak}
	if newStreak > team.BestStreak {
		updates["best_streak"] = newStreak
	}

	return tx.Model(&models.Team{}).Where("id = ?", teamID).Updates(updates).Error
}

// CompleteTeam marks a team's challenge as completed.
func (s *TeamService) CompleteTeam(teamID uint) error {
	return s.completeTeamTx(s.db, teamID)
}

func (s *TeamService) completeTeamTx(tx *gorm.DB, teamID uint) error {
	return tx.Model(&models.Team{}).Where("id = ?", teamID).
		Update("status", models.TeamStatusCompleted).Error
}

// ================== HELPER FUNCTIONS ==================

// generateUniqueTeamCode generates a unique 6-character alphanumeric code
func (s *TeamService) generateUniqueTeamCode() string {
	for {
		bytes := make([]byte, 3)
		rand.Read(bytes)
		code := hex.EncodeToString(bytes)[:6]

		var count int64
		s.db.Model(&models.Team{}).Where("team_code = ?", code).Count(&count)

		if count == 0 {
			return code
		}
	}
}
