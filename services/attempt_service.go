// services/attempt_service.go - Attempt Ledger & Progress Store
package services

import (
	"errors"

	"github.com/nouralddin-abdullah/together/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttemptService owns the attempt ledger (one row per challenge run) and the
// progress store (daily completion records and slip reports). Streak-mutating
// callers pass their transaction handle into the Tx variants so the
// end-attempt / create-attempt pair commits atomically.
type AttemptService struct {
	db    *gorm.DB
	clock Clock
}

func NewAttemptService(db *gorm.DB, clock Clock) *AttemptService {
	return &AttemptService{db: db, clock: clock}
}

// ================== ATTEMPT LEDGER ==================

// CreateAttempt inserts a new ongoing attempt. The caller guarantees no other
// ongoing attempt exists for the team; the partial unique index on
// team_attempts backs that up at the storage layer.
func (s *AttemptService) CreateAttempt(teamID uint, attemptNumber int) (*models.TeamAttempt, error) {
	return s.createAttemptTx(s.db, teamID, attemptNumber)
}

func (s *AttemptService) createAttemptTx(tx *gorm.DB, teamID uint, attemptNumber int) (*models.TeamAttempt, error) {
	attempt := &models.TeamAttempt{
		TeamID:        teamID,
		AttemptNumber: attemptNumber,
		StartedAt:     s.clock.Now(),
		DaysReached:   0,
		EndReason:     models.AttemptOngoing,
	}

	if err := tx.Create(attempt).Error; err != nil {
		return nil, err
	}

	return attempt, nil
}

// GetCurrentAttempt returns the team's ongoing attempt, or nil when the team
// has none. If more than one somehow exists, the highest attempt number wins.
func (s *AttemptService) GetCurrentAttempt(teamID uint) (*models.TeamAttempt, error) {
	return s.getCurrentAttemptTx(s.db, teamID)
}

func (s *AttemptService) getCurrentAttemptTx(tx *gorm.DB, teamID uint) (*models.TeamAttempt, error) {
	var attempt models.TeamAttempt
	err := tx.Where("team_id = ? AND end_reason = ?", teamID, models.AttemptOngoing).
		Order("attempt_number DESC").
		First(&attempt).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &attempt, nil
}

// GetTeamAttempts returns the full attempt history, ascending by number.
func (s *AttemptService) GetTeamAttempts(teamID uint) ([]models.TeamAttempt, error) {
	var attempts []models.TeamAttempt
	err := s.db.Where("team_id = ?", teamID).
		Order("attempt_number ASC").
		Find(&attempts).Error

	return attempts, err
}

// EndAttempt freezes an attempt in a terminal state. Terminal attempts are
// never reopened.
func (s *AttemptService) EndAttempt(attemptID uint, reason models.AttemptEndReason, daysReached int, failedByUserID *uint, wasAnonymous bool) (*models.TeamAttempt, error) {
	return s.endAttemptTx(s.db, attemptID, reason, daysReached, failedByUserID, wasAnonymous)
}

func (s *AttemptService) endAttemptTx(tx *gorm.DB, attemptID uint, reason models.AttemptEndReason, daysReached int, failedByUserID *uint, wasAnonymous bool) (*models.TeamAttempt, error) {
	now := s.clock.Now()
	updates := map[string]interface{}{
		"ended_at":          now,
		"end_reason":        reason,
		"days_reached":      daysReached,
		"failed_by_user_id": failedByUserID,
		"was_anonymous":     wasAnonymous,
	}

	if err := tx.Model(&models.TeamAttempt{}).Where("id = ?", attemptID).Updates(updates).Error; err != nil {
		return nil, err
	}

	var attempt models.TeamAttempt
	if err := tx.First(&attempt, attemptID).Error; err != nil {
		return nil, err
	}

	return &attempt, nil
}

// ================== DAILY PROGRESS (BUILD) ==================

// CreateDailyProgressForMembers bulk-seeds incomplete records for a day so
// the cohort is pinned even if membership changes mid-day. Re-seeding an
// already-seeded day is a no-op thanks to the unique (team, user, date) index.
func (s *AttemptService) CreateDailyProgressForMembers(teamID, attemptID uint, userIDs []uint, date string) error {
	if len(userIDs) == 0 {
		return nil
	}

	records := make([]models.DailyProgress, 0, len(userIDs))
	for _, userID := range userIDs {
		records = append(records, models.DailyProgress{
			TeamID:    teamID,
			AttemptID: attemptID,
			UserID:    userID,
			Date:      date,
			Completed: false,
		})
	}

	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
}

// MarkDailyProgressComplete upserts a member's completion for a day. Marking
// an already-completed day again is a no-op success.
func (s *AttemptService) MarkDailyProgressComplete(teamID, attemptID, userID uint, date, proofURL, proofType string) (*models.DailyProgress, error) {
	now := s.clock.Now()

	var progress models.DailyProgress
	err := s.db.Where("team_id = ? AND user_id = ? AND date = ?", teamID, userID, date).
		First(&progress).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = models.DailyProgress{
			TeamID:      teamID,
			AttemptID:   attemptID,
			UserID:      userID,
			Date:        date,
			Completed:   true,
			CompletedAt: &now,
			ProofURL:    proofURL,
			ProofType:   proofType,
		}
		if err := s.db.Create(&progress).Error; err != nil {
			return nil, err
		}
		return &progress, nil
	}
	if err != nil {
		return nil, err
	}

	if progress.Completed {
		return &progress, nil
	}

	progress.Completed = true
	progress.CompletedAt = &now
	if proofURL != "" {
		progress.ProofURL = proofURL
		progress.ProofType = proofType
	}

	if err := s.db.Save(&progress).Error; err != nil {
		return nil, err
	}

	return &progress, nil
}

// GetDailyProgress returns all progress records for a team on a given day.
func (s *AttemptService) GetDailyProgress(teamID uint, date string) ([]models.DailyProgress, error) {
	var progress []models.DailyProgress
	err := s.db.Where("team_id = ? AND date = ?", teamID, date).
		Preload("User").
		Find(&progress).Error

	return progress, err
}

// ================== SLIP REPORTS (QUIT) ==================

// CreateSlipReport appends a slip to the log. Every slip is recorded even
// when the day's reset already happened.
func (s *AttemptService) CreateSlipReport(teamID, userID, attemptID uint, anonymous bool, note string) (*models.SlipReport, error) {
	report := &models.SlipReport{
		TeamID:              teamID,
		UserID:              userID,
		AttemptID:           attemptID,
		ReportedAt:          s.clock.Now(),
		ReportedAnonymously: anonymous,
		Note:                note,
	}

	if err := s.db.Create(report).Error; err != nil {
		return nil, err
	}

	return report, nil
}

// GetSlipReports returns a team's slip log, newest first.
func (s *AttemptService) GetSlipReports(teamID uint) ([]models.SlipReport, error) {
	var reports []models.SlipReport
	err := s.db.Where("team_id = ?", teamID).
		Preload("User").
		Order("reported_at DESC").
		Find(&reports).Error

	return reports, err
}

// HasSlipsOnDate reports whether any member of the team slipped on the given
// day. Not scoped to an attempt: a slip that ended one attempt still marks
// the day dirty for the attempt that replaced it.
func (s *AttemptService) HasSlipsOnDate(teamID uint, date string) (bool, error) {
	var count int64
	err := s.db.Model(&models.SlipReport{}).
		Where("team_id = ?", teamID).
		Where("DATE(reported_at) = ?", date).
		Count(&count).Error

	return count > 0, err
}
