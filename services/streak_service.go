// services/streak_service.go - Streak Engine
//
// Every mutation of a team's streak counters goes through this service. Both
// the real-time handlers and the midnight job feed it a DayOutcome; it applies
// the increment / reset / complete transition inside one transaction and then
// signals the chat and the real-time channel.
package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/nouralddin-abdullah/together/models"
	"github.com/nouralddin-abdullah/together/utils"

	"gorm.io/gorm"
)

// milestoneEvery is the cadence of streak milestone notifications.
const milestoneEvery = 5

// DayOutcome is the evaluated result of one team-day, independent of habit
// type: either the day was clean, or it carries the failure attribution.
type DayOutcome struct {
	Clean bool

	// BUILD: members without a completed record for the day.
	MissedMembers []models.User

	// QUIT: the member who reported the slip.
	SlippedBy *models.User
	Anonymous bool
}

// EvaluateBuildDay derives a BUILD team's outcome for a day: clean only when
// every current member has a completed progress record.
func EvaluateBuildDay(members []models.User, progress []models.DailyProgress) DayOutcome {
	completed := make(map[uint]bool, len(progress))
	for _, p := range progress {
		if p.Completed {
			completed[p.UserID] = true
		}
	}

	var missed []models.User
	for _, m := range members {
		if !completed[m.ID] {
			missed = append(missed, m)
		}
	}

	return DayOutcome{Clean: len(missed) == 0, MissedMembers: missed}
}

// SlipOutcome wraps a real-time slip report as a day outcome.
func SlipOutcome(user *models.User, anonymous bool) DayOutcome {
	return DayOutcome{Clean: false, SlippedBy: user, Anonymous: anonymous}
}

// CleanDayResult reports what a clean-day transition did. Counted is false
// when the day had already been applied (idempotent re-check).
type CleanDayResult struct {
	Counted     bool
	NewStreak   int
	Milestone   bool
	GoalReached bool
}

// MissResult reports a completed failure transition.
type MissResult struct {
	AttemptEnded     int
	DaysReached      int
	NewAttemptNumber int
	NewAttempt       *models.TeamAttempt
}

// errAlreadyApplied aborts a transition transaction when a concurrent caller
// settled the same day first. Never surfaced to callers.
var errAlreadyApplied = errors.New("transition already applied")

type StreakService struct {
	db         *gorm.DB
	teamSvc    *TeamService
	attemptSvc *AttemptService
	chatSvc    *ChatService
	clock      Clock
}

func NewStreakService(db *gorm.DB, teamSvc *TeamService, attemptSvc *AttemptService, chatSvc *ChatService, clock Clock) *StreakService {
	return &StreakService{db: db, teamSvc: teamSvc, attemptSvc: attemptSvc, chatSvc: chatSvc, clock: clock}
}

// ================== CLEAN DAY ==================

// ApplyCleanDay counts one clean day for the team: increments the streak,
// fires the milestone every five days, and completes the challenge when the
// goal is reached. Counting the same date twice is a no-op, whichever of the
// check-in path or the midnight job gets there second.
func (s *StreakService) ApplyCleanDay(team *models.Team, attempt *models.TeamAttempt, date string) (*CleanDayResult, error) {
	if attempt.LastCountedDate >= date && attempt.LastCountedDate != "" {
		return &CleanDayResult{Counted: false, NewStreak: team.CurrentStreak}, nil
	}
	// A reset already consumed this day if the attempt began after it.
	if utils.DateOf(attempt.StartedAt) > date {
		return &CleanDayResult{Counted: false, NewStreak: team.CurrentStreak}, nil
	}

	newStreak := team.CurrentStreak + 1
	goalReached := newStreak >= team.WantedStreak

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Re-check against persisted state: a concurrent caller may have
		// settled this day between our read and this transaction.
		current, err := s.attemptSvc.getCurrentAttemptTx(tx, team.ID)
		if err != nil {
			return err
		}
		if current == nil || current.ID != attempt.ID {
			return errAlreadyApplied
		}
		if current.LastCountedDate >= date && current.LastCountedDate != "" {
			return errAlreadyApplied
		}

		if err := s.teamSvc.updateTeamStreakTx(tx, team.ID, newStreak); err != nil {
			return err
		}

		if err := tx.Model(&models.TeamAttempt{}).Where("id = ?", attempt.ID).
			Update("last_counted_date", date).Error; err != nil {
			return err
		}

		if goalReached {
			if _, err := s.attemptSvc.endAttemptTx(tx, attempt.ID, models.AttemptCompleted, newStreak, nil, false); err != nil {
				return err
			}
			return s.teamSvc.completeTeamTx(tx, team.ID)
		}

		return nil
	})

	if errors.Is(err, errAlreadyApplied) {
		return &CleanDayResult{Counted: false, NewStreak: team.CurrentStreak}, nil
	}
	if err != nil {
		return nil, err
	}

	team.CurrentStreak = newStreak
	if newStreak > team.BestStreak {
		team.BestStreak = newStreak
	}
	attempt.LastCountedDate = date

	result := &CleanDayResult{
		Counted:     true,
		NewStreak:   newStreak,
		Milestone:   newStreak%milestoneEvery == 0,
		GoalReached: goalReached,
	}

	s.notifyCleanDay(team, attempt, result)
	return result, nil
}

func (s *StreakService) notifyCleanDay(team *models.Team, attempt *models.TeamAttempt, result *CleanDayResult) {
	if result.Milestone {
		content := fmt.Sprintf("🔥 %d يوم! استمروا! 💪", result.NewStreak)
		if team.HabitType == models.HabitTypeQuit {
			content = fmt.Sprintf("🔥 %d يوم نظيف! استمروا! 💪", result.NewStreak)
		}

		if err := s.chatSvc.CreateSystemMessage(team.ID, models.SystemStreakMilestone, content, nil, map[string]interface{}{
			"milestone": result.NewStreak,
			"goal":      team.WantedStreak,
		}); err != nil {
			log.Printf("Failed to record milestone message for team %d: %v", team.ID, err)
		}

		s.chatSvc.Emit(team.ID, EventStreakMilestone, map[string]interface{}{
			"day":  result.NewStreak,
			"goal": team.WantedStreak,
		})
	}

	if result.GoalReached {
		content := fmt.Sprintf("🎉🎊 مبرررروك! أكملتم التحدي بنجاح! %d يوم!", team.WantedStreak)
		if team.HabitType == models.HabitTypeQuit {
			content = fmt.Sprintf("🎉🎊 مبرررروك! أكملتم التحدي بنجاح! %d يوم نظيف!", team.WantedStreak)
		}

		if err := s.chatSvc.CreateSystemMessage(team.ID, models.SystemChallengeCompleted, content, nil, map[string]interface{}{
			"goalReached": team.WantedStreak,
		}); err != nil {
			log.Printf("Failed to record completion message for team %d: %v", team.ID, err)
		}

		s.chatSvc.Emit(team.ID, EventChallengeCompleted, map[string]interface{}{
			"totalDays":     team.WantedStreak,
			"totalAttempts": attempt.AttemptNumber,
		})
	}
}

// ================== MISS / SLIP ==================

// ApplyMiss runs the full failure transition: ends the current attempt with
// attribution, zeroes the streak and opens the next attempt, all in one
// transaction so the one-ongoing-attempt invariant holds under concurrency.
func (s *StreakService) ApplyMiss(team *models.Team, attempt *models.TeamAttempt, outcome DayOutcome) (*MissResult, error) {
	if outcome.Clean {
		return nil, errors.New("ApplyMiss called with a clean outcome")
	}

	daysReached := team.CurrentStreak
	attemptEnded := attempt.AttemptNumber

	var failedByUserID *uint
	if outcome.SlippedBy != nil {
		id := outcome.SlippedBy.ID
		failedByUserID = &id
	} else if len(outcome.MissedMembers) > 0 {
		id := outcome.MissedMembers[0].ID
		failedByUserID = &id
	}

	var newAttempt *models.TeamAttempt

	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.attemptSvc.getCurrentAttemptTx(tx, team.ID)
		if err != nil {
			return err
		}
		if current == nil || current.ID != attempt.ID {
			return errAlreadyApplied
		}

		// End before create, so there is never a moment with two ongoing
		// attempts (and never one with zero outside this transaction).
		if _, err := s.attemptSvc.endAttemptTx(tx, attempt.ID, models.AttemptFailed, daysReached, failedByUserID, outcome.Anonymous); err != nil {
			return err
		}

		if err := s.teamSvc.updateTeamStreakTx(tx, team.ID, 0); err != nil {
			return err
		}

		newAttempt, err = s.attemptSvc.createAttemptTx(tx, team.ID, attemptEnded+1)
		return err
	})

	if errors.Is(err, errAlreadyApplied) {
		// Someone else reset the team for this day; report the attempt that
		// is now current instead of double-resetting.
		current, cerr := s.attemptSvc.GetCurrentAttempt(team.ID)
		if cerr != nil || current == nil {
			return nil, ErrNoOngoingAttempt
		}
		return &MissResult{
			AttemptEnded:     attemptEnded,
			DaysReached:      0,
			NewAttemptNumber: current.AttemptNumber,
			NewAttempt:       current,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	team.CurrentStreak = 0

	result := &MissResult{
		AttemptEnded:     attemptEnded,
		DaysReached:      daysReached,
		NewAttemptNumber: newAttempt.AttemptNumber,
		NewAttempt:       newAttempt,
	}

	s.notifyMiss(team, outcome, result)
	return result, nil
}

func (s *StreakService) notifyMiss(team *models.Team, outcome DayOutcome, result *MissResult) {
	var content string
	var actorUserID *uint
	metadata := map[string]interface{}{
		"attemptNumber":    result.AttemptEnded,
		"daysReached":      result.DaysReached,
		"newAttemptNumber": result.NewAttemptNumber,
	}

	switch {
	case outcome.SlippedBy != nil && outcome.Anonymous:
		content = "أحد الأعضاء انتكس. السلسلة انتهت. نبدأ من جديد!"
		metadata["anonymous"] = true
	case outcome.SlippedBy != nil:
		content = fmt.Sprintf("%s انتكس. السلسلة انتهت. نبدأ من جديد!", outcome.SlippedBy.NickName)
		id := outcome.SlippedBy.ID
		actorUserID = &id
		metadata["anonymous"] = false
	default:
		names := make([]string, 0, len(outcome.MissedMembers))
		ids := make([]uint, 0, len(outcome.MissedMembers))
		for _, m := range outcome.MissedMembers {
			names = append(names, m.NickName)
			ids = append(ids, m.ID)
		}
		joined := strings.Join(names, "، ")
		if len(names) == 1 {
			content = fmt.Sprintf("%s لم يكمل اليوم. السلسلة انتهت عند %d يوم. نبدأ من جديد!", joined, result.DaysReached)
		} else {
			content = fmt.Sprintf("%s لم يكملوا اليوم. السلسلة انتهت عند %d يوم. نبدأ من جديد!", joined, result.DaysReached)
		}
		metadata["missedUserIds"] = ids
	}

	if err := s.chatSvc.CreateSystemMessage(team.ID, models.SystemStreakFailed, content, actorUserID, metadata); err != nil {
		log.Printf("Failed to record failure message for team %d: %v", team.ID, err)
	}

	if outcome.SlippedBy != nil {
		payload := map[string]interface{}{
			"anonymous":        outcome.Anonymous,
			"attemptNumber":    result.AttemptEnded,
			"daysReached":      result.DaysReached,
			"newAttemptNumber": result.NewAttemptNumber,
		}
		if !outcome.Anonymous {
			payload["nickName"] = outcome.SlippedBy.NickName
		}
		s.chatSvc.Emit(team.ID, EventHabitSlip, payload)
		return
	}

	ids := make([]uint, 0, len(outcome.MissedMembers))
	for _, m := range outcome.MissedMembers {
		ids = append(ids, m.ID)
	}
	s.chatSvc.Emit(team.ID, EventStreakReset, map[string]interface{}{
		"reason":           "missed",
		"attemptNumber":    result.AttemptEnded,
		"daysReached":      result.DaysReached,
		"newAttemptNumber": result.NewAttemptNumber,
		"missedUserIds":    ids,
	})
}
