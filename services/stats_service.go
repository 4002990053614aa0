// services/stats_service.go - Team and personal statistics
package services

import (
	"math"

	"github.com/nouralddin-abdullah/together/models"

	"gorm.io/gorm"
)

type StatsService struct {
	db         *gorm.DB
	teamSvc    *TeamService
	attemptSvc *AttemptService
	clock      Clock
}

func NewStatsService(db *gorm.DB, teamSvc *TeamService, attemptSvc *AttemptService, clock Clock) *StatsService {
	return &StatsService{db: db, teamSvc: teamSvc, attemptSvc: attemptSvc, clock: clock}
}

type AttemptHistory struct {
	ID               uint                    `json:"id"`
	Number           int                     `json:"number"`
	Days             int                     `json:"days"`
	Result           models.AttemptEndReason `json:"result"`
	StartedAt        string                  `json:"started_at"`
	EndedAt          *string                 `json:"ended_at"`
	FailedByNickName *string                 `json:"failed_by_nick_name"`
	WasAnonymous     bool                    `json:"was_anonymous"`
}

type MemberStats struct {
	UserID        uint   `json:"user_id"`
	NickName      string `json:"nick_name"`
	Avatar        string `json:"avatar"`
	CheckInRate   int    `json:"check_in_rate"`
	TotalCheckIns int    `json:"total_check_ins"`
	MissedDays    int    `json:"missed_days"`
	CausedResets  int    `json:"caused_resets"`
}

type CurrentAttemptInfo struct {
	Number          int    `json:"number"`
	StartedAt       string `json:"started_at"`
	DaysCompleted   int    `json:"days_completed"`
	ProgressPercent int    `json:"progress_percent"`
}

type TeamStats struct {
	Team struct {
		ID                 uint              `json:"id"`
		Name               string            `json:"name"`
		HabitName          string            `json:"habit_name"`
		HabitType          models.HabitType  `json:"habit_type"`
		Status             models.TeamStatus `json:"status"`
		Goal               int               `json:"goal"`
		RequireProof       bool              `json:"require_proof"`
		AllowAnonymousFail bool              `json:"allow_anonymous_fail"`
	} `json:"team"`
	CurrentAttempt *CurrentAttemptInfo `json:"current_attempt"`
	Streak         struct {
		Current   int `json:"current"`
		Best      int `json:"best"`
		Goal      int `json:"goal"`
		Remaining int `json:"remaining"`
	} `json:"streak"`
	History struct {
		TotalAttempts int              `json:"total_attempts"`
		LongestStreak int              `json:"longest_streak"`
		AverageStreak float64          `json:"average_streak"`
		SuccessRate   float64          `json:"success_rate"`
		Attempts      []AttemptHistory `json:"attempts"`
	} `json:"history"`
	MemberStats []MemberStats `json:"member_stats"`
}

type DayProgressDetail struct {
	Date    string `json:"date"`
	Members []struct {
		UserID      uint    `json:"user_id"`
		NickName    string  `json:"nick_name"`
		Completed   bool    `json:"completed"`
		CompletedAt *string `json:"completed_at"`
		ProofURL    string  `json:"proof_url,omitempty"`
	} `json:"members"`
}

type AttemptDetail struct {
	ID               uint                    `json:"id"`
	AttemptNumber    int                     `json:"attempt_number"`
	StartedAt        string                  `json:"started_at"`
	EndedAt          *string                 `json:"ended_at"`
	DaysReached      int                     `json:"days_reached"`
	EndReason        models.AttemptEndReason `json:"end_reason"`
	FailedByUserID   *uint                   `json:"failed_by_user_id"`
	FailedByNickName *string                 `json:"failed_by_nick_name"`
	WasAnonymous     bool                    `json:"was_anonymous"`
	DailyProgress    []DayProgressDetail     `json:"daily_progress"`
}

type MyContribution struct {
	TotalCheckIns    int `json:"total_check_ins"`
	CheckInRate      int `json:"check_in_rate"`
	MissedDays       int `json:"missed_days"`
	CausedTeamResets int `json:"caused_team_resets"`
}

type MyStats struct {
	User struct {
		ID       uint   `json:"id"`
		NickName string `json:"nick_name"`
	} `json:"user"`
	TeamInfo *struct {
		TeamID        uint             `json:"team_id"`
		TeamName      string           `json:"team_name"`
		HabitName     string           `json:"habit_name"`
		HabitType     models.HabitType `json:"habit_type"`
		Role          string           `json:"role"`
		CurrentStreak int              `json:"current_streak"`
		BestStreak    int              `json:"best_streak"`
		Goal          int              `json:"goal"`
	} `json:"team_info"`
	MyContribution *MyContribution `json:"my_contribution"`
}

// ================== TEAM STATS ==================

// GetTeamStats aggregates streak, history and per-member numbers for the
// caller's team.
func (s *StatsService) GetTeamStats(userID uint) (*TeamStats, error) {
	team, err := s.teamSvc.FindUserTeam(userID)
	if err != nil {
		return nil, err
	}

	members, err := s.teamSvc.GetTeamMembers(team.ID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attemptSvc.GetTeamAttempts(team.ID)
	if err != nil {
		return nil, err
	}

	stats := &TeamStats{}
	stats.Team.ID = team.ID
	stats.Team.Name = team.Name
	stats.Team.HabitName = team.HabitName
	stats.Team.HabitType = team.HabitType
	stats.Team.Status = team.Status
	stats.Team.Goal = team.WantedStreak
	stats.Team.RequireProof = team.RequireProof
	stats.Team.AllowAnonymousFail = team.AllowAnonymousFail

	bestStreak := team.BestStreak
	for _, a := range attempts {
		if a.DaysReached > bestStreak {
			bestStreak = a.DaysReached
		}
	}

	stats.Streak.Current = team.CurrentStreak
	stats.Streak.Best = bestStreak
	stats.Streak.Goal = team.WantedStreak
	if remaining := team.WantedStreak - team.CurrentStreak; remaining > 0 {
		stats.Streak.Remaining = remaining
	}

	for _, a := range attempts {
		if a.EndReason == models.AttemptOngoing {
			stats.CurrentAttempt = &CurrentAttemptInfo{
				Number:          a.AttemptNumber,
				StartedAt:       a.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
				DaysCompleted:   team.CurrentStreak,
				ProgressPercent: int(math.Round(float64(team.CurrentStreak) / float64(team.WantedStreak) * 100)),
			}
		}
	}

	stats.History.TotalAttempts = len(attempts)
	stats.History.LongestStreak = bestStreak
	stats.History.Attempts = s.attemptHistory(attempts, members)

	completed, failed := 0, 0
	daysSum := 0
	for _, a := range attempts {
		switch a.EndReason {
		case models.AttemptCompleted:
			completed++
			daysSum += a.DaysReached
		case models.AttemptFailed:
			failed++
			daysSum += a.DaysReached
		}
	}
	if finished := completed + failed; finished > 0 {
		stats.History.AverageStreak = math.Round(float64(daysSum)/float64(finished)*10) / 10
		stats.History.SuccessRate = math.Round(float64(completed)/float64(finished)*1000) / 10
	}

	stats.MemberStats = s.calculateMemberStats(members, attempts)

	return stats, nil
}

// GetTeamAttempts returns the caller's team attempt history.
func (s *StatsService) GetTeamAttempts(userID uint) ([]AttemptHistory, error) {
	team, err := s.teamSvc.FindUserTeam(userID)
	if err != nil {
		return nil, err
	}

	members, err := s.teamSvc.GetTeamMembers(team.ID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attemptSvc.GetTeamAttempts(team.ID)
	if err != nil {
		return nil, err
	}

	return s.attemptHistory(attempts, members), nil
}

// GetAttemptDetail returns one attempt with its per-day progress (BUILD only).
func (s *StatsService) GetAttemptDetail(userID, attemptID uint) (*AttemptDetail, error) {
	team, err := s.teamSvc.FindUserTeam(userID)
	if err != nil {
		return nil, err
	}

	members, err := s.teamSvc.GetTeamMembers(team.ID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attemptSvc.GetTeamAttempts(team.ID)
	if err != nil {
		return nil, err
	}

	var attempt *models.TeamAttempt
	for i := range attempts {
		if attempts[i].ID == attemptID {
			attempt = &attempts[i]
			break
		}
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}

	detail := &AttemptDetail{
		ID:             attempt.ID,
		AttemptNumber:  attempt.AttemptNumber,
		StartedAt:      attempt.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		DaysReached:    attempt.DaysReached,
		EndReason:      attempt.EndReason,
		FailedByUserID: attempt.FailedByUserID,
		WasAnonymous:   attempt.WasAnonymous,
		DailyProgress:  []DayProgressDetail{},
	}
	if attempt.EndedAt != nil {
		ended := attempt.EndedAt.Format("2006-01-02T15:04:05Z07:00")
		detail.EndedAt = &ended
	}
	detail.FailedByNickName = failedByName(attempt, members)

	if team.HabitType != models.HabitTypeBuild {
		return detail, nil
	}

	nickByID := make(map[uint]string, len(members))
	for _, m := range members {
		nickByID[m.ID] = m.NickName
	}

	var progress []models.DailyProgress
	if err := s.db.Where("attempt_id = ?", attempt.ID).
		Order("date ASC, user_id ASC").
		Find(&progress).Error; err != nil {
		return nil, err
	}

	var current *DayProgressDetail
	for _, p := range progress {
		if current == nil || current.Date != p.Date {
			detail.DailyProgress = append(detail.DailyProgress, DayProgressDetail{Date: p.Date})
			current = &detail.DailyProgress[len(detail.DailyProgress)-1]
		}

		nick := nickByID[p.UserID]
		if nick == "" {
			nick = "Unknown"
		}
		entry := struct {
			UserID      uint    `json:"user_id"`
			NickName    string  `json:"nick_name"`
			Completed   bool    `json:"completed"`
			CompletedAt *string `json:"completed_at"`
			ProofURL    string  `json:"proof_url,omitempty"`
		}{UserID: p.UserID, NickName: nick, Completed: p.Completed, ProofURL: p.ProofURL}
		if p.CompletedAt != nil {
			at := p.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
			entry.CompletedAt = &at
		}
		current.Members = append(current.Members, entry)
	}

	return detail, nil
}

// GetMyStats returns the caller's personal contribution numbers.
func (s *StatsService) GetMyStats(userID uint) (*MyStats, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	stats := &MyStats{}
	stats.User.ID = user.ID
	stats.User.NickName = user.NickName

	if user.TeamID == nil {
		return stats, nil
	}

	team, err := s.teamSvc.FindByID(*user.TeamID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attemptSvc.GetTeamAttempts(team.ID)
	if err != nil {
		return nil, err
	}

	bestStreak := team.BestStreak
	for _, a := range attempts {
		if a.DaysReached > bestStreak {
			bestStreak = a.DaysReached
		}
	}

	role := "member"
	if team.OwnerID == userID {
		role = "owner"
	}

	stats.TeamInfo = &struct {
		TeamID        uint             `json:"team_id"`
		TeamName      string           `json:"team_name"`
		HabitName     string           `json:"habit_name"`
		HabitType     models.HabitType `json:"habit_type"`
		Role          string           `json:"role"`
		CurrentStreak int              `json:"current_streak"`
		BestStreak    int              `json:"best_streak"`
		Goal          int              `json:"goal"`
	}{
		TeamID:        team.ID,
		TeamName:      team.Name,
		HabitName:     team.HabitName,
		HabitType:     team.HabitType,
		Role:          role,
		CurrentStreak: team.CurrentStreak,
		BestStreak:    bestStreak,
		Goal:          team.WantedStreak,
	}

	contribution := contributionFor(userID, attempts)
	stats.MyContribution = &contribution

	return stats, nil
}

// ================== HELPERS ==================

func (s *StatsService) attemptHistory(attempts []models.TeamAttempt, members []models.User) []AttemptHistory {
	history := make([]AttemptHistory, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		item := AttemptHistory{
			ID:           a.ID,
			Number:       a.AttemptNumber,
			Days:         a.DaysReached,
			Result:       a.EndReason,
			StartedAt:    a.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			WasAnonymous: a.WasAnonymous,
		}
		if a.EndedAt != nil {
			ended := a.EndedAt.Format("2006-01-02T15:04:05Z07:00")
			item.EndedAt = &ended
		}
		item.FailedByNickName = failedByName(a, members)
		history = append(history, item)
	}
	return history
}

func failedByName(a *models.TeamAttempt, members []models.User) *string {
	if a.WasAnonymous || a.FailedByUserID == nil {
		return nil
	}
	for _, m := range members {
		if m.ID == *a.FailedByUserID {
			name := m.NickName
			return &name
		}
	}
	return nil
}

// calculateMemberStats derives per-member numbers from attempt aggregates.
// Check-in counts are estimated from total attempted days minus the resets a
// member caused, not from per-day progress rows. An exact derivation would
// query the progress store; the estimate is kept deliberately (see DESIGN.md).
func (s *StatsService) calculateMemberStats(members []models.User, attempts []models.TeamAttempt) []MemberStats {
	stats := make([]MemberStats, 0, len(members))
	for _, m := range members {
		contribution := contributionFor(m.ID, attempts)
		stats = append(stats, MemberStats{
			UserID:        m.ID,
			NickName:      m.NickName,
			Avatar:        m.Avatar,
			CheckInRate:   contribution.CheckInRate,
			TotalCheckIns: contribution.TotalCheckIns,
			MissedDays:    contribution.MissedDays,
			CausedResets:  contribution.CausedTeamResets,
		})
	}
	return stats
}

func contributionFor(userID uint, attempts []models.TeamAttempt) MyContribution {
	totalDays := 0
	causedResets := 0
	for _, a := range attempts {
		totalDays += a.DaysReached
		if a.EndReason == models.AttemptFailed && a.FailedByUserID != nil && *a.FailedByUserID == userID {
			causedResets++
		}
	}

	totalCheckIns := totalDays - causedResets
	if totalCheckIns < 0 {
		totalCheckIns = 0
	}

	rate := 100
	if totalDays > 0 {
		rate = int(math.Round(float64(totalCheckIns) / float64(totalDays) * 100))
		if rate > 100 {
			rate = 100
		}
	}

	return MyContribution{
		TotalCheckIns:    totalCheckIns,
		CheckInRate:      rate,
		MissedDays:       causedResets,
		CausedTeamResets: causedResets,
	}
}
