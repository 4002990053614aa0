// services/habit_service.go - Real-time habit actions
//
// Check-ins and slip reports apply streak transitions synchronously so the
// team gets feedback the moment the day is decided, without waiting for the
// midnight job.
package services

import (
	"fmt"
	"log"
	"time"

	"github.com/nouralddin-abdullah/together/models"
	"github.com/nouralddin-abdullah/together/utils"

	"gorm.io/gorm"
)

type HabitService struct {
	db         *gorm.DB
	teamSvc    *TeamService
	attemptSvc *AttemptService
	streakSvc  *StreakService
	chatSvc    *ChatService
	clock      Clock
}

func NewHabitService(db *gorm.DB, teamSvc *TeamService, attemptSvc *AttemptService, streakSvc *StreakService, chatSvc *ChatService, clock Clock) *HabitService {
	return &HabitService{db: db, teamSvc: teamSvc, attemptSvc: attemptSvc, streakSvc: streakSvc, chatSvc: chatSvc, clock: clock}
}

// TeamProgress summarizes who finished and who is still pending for a day.
type TeamProgress struct {
	Completed []uint `json:"completed"`
	Pending   []uint `json:"pending"`
}

type CheckInResult struct {
	Date             string       `json:"date"`
	CompletedAt      time.Time    `json:"completed_at"`
	TeamProgress     TeamProgress `json:"team_progress"`
	AllComplete      bool         `json:"all_complete"`
	AlreadyCompleted bool         `json:"already_completed"`
	NewStreak        int          `json:"new_streak,omitempty"`
	GoalReached      bool         `json:"goal_reached,omitempty"`
}

type ReportSlipResult struct {
	AttemptEnded      int  `json:"attempt_ended"`
	DaysReached       int  `json:"days_reached"`
	NewAttemptNumber  int  `json:"new_attempt_number"`
	WasAnonymous      bool `json:"was_anonymous"`
	AlreadyResetToday bool `json:"already_reset_today"`
}

// ================== CHECK-IN (BUILD) ==================

// CheckIn records a member's daily completion. When this check-in makes the
// whole team complete for the day, the clean-day transition runs immediately.
// Checking in twice on the same day is a no-op success.
func (s *HabitService) CheckIn(userID uint, proofURL, proofType string) (*CheckInResult, error) {
	user, team, err := s.activeTeamFor(userID, models.HabitTypeBuild)
	if err != nil {
		return nil, err
	}

	if team.RequireProof && proofURL == "" {
		return nil, ErrProofRequired
	}

	today := utils.DateOf(s.clock.Now())
	members, err := s.teamSvc.GetTeamMembers(team.ID)
	if err != nil {
		return nil, err
	}

	progress, err := s.attemptSvc.GetDailyProgress(team.ID, today)
	if err != nil {
		return nil, err
	}

	for _, p := range progress {
		if p.UserID == userID && p.Completed {
			// Idempotent early return; nothing moved.
			completedAt := s.clock.Now()
			if p.CompletedAt != nil {
				completedAt = *p.CompletedAt
			}
			summary := summarizeProgress(members, progress)
			return &CheckInResult{
				Date:             today,
				CompletedAt:      completedAt,
				TeamProgress:     summary,
				AllComplete:      len(summary.Pending) == 0,
				AlreadyCompleted: true,
			}, nil
		}
	}

	attempt, err := s.attemptSvc.GetCurrentAttempt(team.ID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, ErrNoOngoingAttempt
	}

	marked, err := s.attemptSvc.MarkDailyProgressComplete(team.ID, attempt.ID, userID, today, proofURL, proofType)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("last_check_in_date", today).Error; err != nil {
		log.Printf("Failed to update last check-in date for user %d: %v", userID, err)
	}

	// Re-derive today's state from the store, not from handler memory.
	progress, err = s.attemptSvc.GetDailyProgress(team.ID, today)
	if err != nil {
		return nil, err
	}
	summary := summarizeProgress(members, progress)
	allComplete := len(summary.Pending) == 0

	day := team.CurrentStreak + 1
	if err := s.chatSvc.CreateSystemMessage(team.ID, models.SystemStreakCompleted,
		fmt.Sprintf("✓ %s أكمل اليوم", user.NickName), &userID,
		map[string]interface{}{"day": day}); err != nil {
		log.Printf("Failed to record check-in message for team %d: %v", team.ID, err)
	}

	s.chatSvc.Emit(team.ID, EventHabitCheckIn, map[string]interface{}{
		"userId":   userID,
		"nickName": user.NickName,
		"day":      day,
	})

	result := &CheckInResult{
		Date:         today,
		CompletedAt:  *marked.CompletedAt,
		TeamProgress: summary,
		AllComplete:  allComplete,
	}

	if allComplete {
		s.chatSvc.Emit(team.ID, EventAllComplete, map[string]interface{}{
			"day":         day,
			"memberCount": len(summary.Completed),
		})

		clean, err := s.streakSvc.ApplyCleanDay(team, attempt, today)
		if err != nil {
			return nil, err
		}
		result.NewStreak = clean.NewStreak
		result.GoalReached = clean.GoalReached
	}

	return result, nil
}

func summarizeProgress(members []models.User, progress []models.DailyProgress) TeamProgress {
	completed := make(map[uint]bool, len(progress))
	for _, p := range progress {
		if p.Completed {
			completed[p.UserID] = true
		}
	}

	summary := TeamProgress{Completed: []uint{}, Pending: []uint{}}
	for _, m := range members {
		if completed[m.ID] {
			summary.Completed = append(summary.Completed, m.ID)
		} else {
			summary.Pending = append(summary.Pending, m.ID)
		}
	}
	return summary
}

// ================== REPORT SLIP (QUIT) ==================

// ReportSlip logs a member's slip. The first slip since the last reset runs
// the full failure transition synchronously; later slips on an
// already-reset day are recorded without touching the streak.
func (s *HabitService) ReportSlip(userID uint, anonymous bool, note string) (*ReportSlipResult, error) {
	user, team, err := s.activeTeamFor(userID, models.HabitTypeQuit)
	if err != nil {
		return nil, err
	}

	if anonymous && !team.AllowAnonymousFail {
		return nil, ErrAnonymousNotAllowed
	}

	attempt, err := s.attemptSvc.GetCurrentAttempt(team.ID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, ErrNoOngoingAttempt
	}

	today := utils.DateOf(s.clock.Now())
	alreadyResetToday := utils.DateOf(attempt.StartedAt) == today && team.CurrentStreak == 0

	// The slip is always recorded, reset or not.
	if _, err := s.attemptSvc.CreateSlipReport(team.ID, userID, attempt.ID, anonymous, note); err != nil {
		return nil, err
	}

	if alreadyResetToday {
		content := fmt.Sprintf("%s أيضاً انتكس اليوم.", user.NickName)
		var actorUserID *uint
		if anonymous {
			content = "أحد الأعضاء أيضاً انتكس اليوم."
		} else {
			actorUserID = &userID
		}

		if err := s.chatSvc.CreateSystemMessage(team.ID, models.SystemStreakFailed, content, actorUserID, map[string]interface{}{
			"anonymous":      anonymous,
			"attemptNumber":  attempt.AttemptNumber,
			"additionalSlip": true,
		}); err != nil {
			log.Printf("Failed to record additional-slip message for team %d: %v", team.ID, err)
		}

		payload := map[string]interface{}{
			"anonymous":        anonymous,
			"attemptNumber":    attempt.AttemptNumber,
			"daysReached":      0,
			"newAttemptNumber": attempt.AttemptNumber,
		}
		if !anonymous {
			payload["nickName"] = user.NickName
		}
		s.chatSvc.Emit(team.ID, EventHabitSlip, payload)

		return &ReportSlipResult{
			AttemptEnded:      attempt.AttemptNumber,
			DaysReached:       0,
			NewAttemptNumber:  attempt.AttemptNumber,
			WasAnonymous:      anonymous,
			AlreadyResetToday: true,
		}, nil
	}

	miss, err := s.streakSvc.ApplyMiss(team, attempt, SlipOutcome(user, anonymous))
	if err != nil {
		return nil, err
	}

	return &ReportSlipResult{
		AttemptEnded:     miss.AttemptEnded,
		DaysReached:      miss.DaysReached,
		NewAttemptNumber: miss.NewAttemptNumber,
		WasAnonymous:     anonymous,
	}, nil
}

// ================== TODAY STATUS ==================

type MyTodayStatus struct {
	Date          string            `json:"date"`
	HabitType     models.HabitType  `json:"habit_type"`
	HabitName     string            `json:"habit_name"`
	Completed     bool              `json:"completed"`
	CompletedAt   *time.Time        `json:"completed_at"`
	ProofURL      string            `json:"proof_url,omitempty"`
	RequireProof  bool              `json:"require_proof"`
	CurrentStreak int               `json:"current_streak"`
	GoalStreak    int               `json:"goal_streak"`
	TeamStatus    models.TeamStatus `json:"team_status"`
}

type MemberTodayStatus struct {
	UserID      uint       `json:"user_id"`
	NickName    string     `json:"nick_name"`
	Avatar      string     `json:"avatar"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	ProofURL    string     `json:"proof_url,omitempty"`
	ProofType   string     `json:"proof_type,omitempty"`
}

type TeamTodayStatus struct {
	Date          string              `json:"date"`
	HabitType     models.HabitType    `json:"habit_type"`
	HabitName     string              `json:"habit_name"`
	RequireProof  bool                `json:"require_proof"`
	CurrentStreak int                 `json:"current_streak"`
	GoalStreak    int                 `json:"goal_streak"`
	Members       []MemberTodayStatus `json:"members"`
	Summary       StatusSummary       `json:"summary"`
}

type StatusSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// GetMyTodayStatus returns the caller's own state for the current day.
func (s *HabitService) GetMyTodayStatus(userID uint) (*MyTodayStatus, error) {
	team, err := s.teamSvc.FindUserTeam(userID)
	if err != nil {
		return nil, err
	}

	today := utils.DateOf(s.clock.Now())
	status := &MyTodayStatus{
		Date:          today,
		HabitType:     team.HabitType,
		HabitName:     team.HabitName,
		RequireProof:  team.RequireProof,
		CurrentStreak: team.CurrentStreak,
		GoalStreak:    team.WantedStreak,
		TeamStatus:    team.Status,
	}

	// QUIT habits and teams that have not started have no daily check-in.
	if team.HabitType == models.HabitTypeQuit || team.Status != models.TeamStatusActive {
		return status, nil
	}

	progress, err := s.attemptSvc.GetDailyProgress(team.ID, today)
	if err != nil {
		return nil, err
	}

	for _, p := range progress {
		if p.UserID == userID {
			status.Completed = p.Completed
			status.CompletedAt = p.CompletedAt
			status.ProofURL = p.ProofURL
			break
		}
	}

	return status, nil
}

// GetTeamTodayStatus returns every member's state for the current day.
func (s *HabitService) GetTeamTodayStatus(userID uint) (*TeamTodayStatus, error) {
	team, err := s.teamSvc.FindUserTeam(userID)
	if err != nil {
		return nil, err
	}

	today := utils.DateOf(s.clock.Now())
	members, err := s.teamSvc.GetTeamMembers(team.ID)
	if err != nil {
		return nil, err
	}

	status := &TeamTodayStatus{
		Date:          today,
		HabitType:     team.HabitType,
		HabitName:     team.HabitName,
		RequireProof:  team.RequireProof,
		CurrentStreak: team.CurrentStreak,
		GoalStreak:    team.WantedStreak,
	}

	// In QUIT habits staying clean needs no daily action, so everyone counts
	// as complete.
	if team.HabitType == models.HabitTypeQuit {
		for _, m := range members {
			status.Members = append(status.Members, MemberTodayStatus{
				UserID:    m.ID,
				NickName:  m.NickName,
				Avatar:    m.Avatar,
				Completed: true,
			})
		}
		status.RequireProof = false
		status.Summary = StatusSummary{Total: len(members), Completed: len(members)}
		return status, nil
	}

	progress, err := s.attemptSvc.GetDailyProgress(team.ID, today)
	if err != nil {
		return nil, err
	}

	byUser := make(map[uint]models.DailyProgress, len(progress))
	for _, p := range progress {
		byUser[p.UserID] = p
	}

	completedCount := 0
	for _, m := range members {
		member := MemberTodayStatus{UserID: m.ID, NickName: m.NickName, Avatar: m.Avatar}
		if p, ok := byUser[m.ID]; ok {
			member.Completed = p.Completed
			member.CompletedAt = p.CompletedAt
			member.ProofURL = p.ProofURL
			member.ProofType = p.ProofType
		}
		if member.Completed {
			completedCount++
		}
		status.Members = append(status.Members, member)
	}

	status.Summary = StatusSummary{
		Total:     len(members),
		Completed: completedCount,
		Pending:   len(members) - completedCount,
	}

	return status, nil
}

// ================== HELPERS ==================

// activeTeamFor loads the user and their team, requiring an active team of
// the given habit type.
func (s *HabitService) activeTeamFor(userID uint, habitType models.HabitType) (*models.User, *models.Team, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, nil, ErrUserNotFound
	}
	if user.TeamID == nil {
		return nil, nil, ErrNotInTeam
	}

	team, err := s.teamSvc.FindByID(*user.TeamID)
	if err != nil {
		return nil, nil, err
	}

	if team.Status != models.TeamStatusActive {
		return nil, nil, ErrTeamNotActive
	}
	if team.HabitType != habitType {
		return nil, nil, ErrWrongHabitType
	}

	return &user, team, nil
}
