// services/midnight_service.go - Midnight reconciliation job
//
// Once a day, shortly past midnight UTC, every active team is evaluated
// against yesterday's persisted state: BUILD teams against the progress
// store, QUIT teams as a safety net for days with no real-time slip. All
// rules live in the streak engine; this job only orchestrates.
package services

import (
	"fmt"
	"log"

	"github.com/nouralddin-abdullah/together/models"
	"github.com/nouralddin-abdullah/together/utils"

	"github.com/robfig/cron/v3"
)

// midnightCronSpec runs at 00:05 UTC, a few minutes past the day rollover.
const midnightCronSpec = "5 0 * * *"

// ReconcileReport summarizes one reconciliation pass over one habit type.
type ReconcileReport struct {
	Date      string `json:"date"`
	Teams     int    `json:"teams"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
}

type MidnightService struct {
	teamSvc    *TeamService
	attemptSvc *AttemptService
	streakSvc  *StreakService
	clock      Clock
	cron       *cron.Cron
}

func NewMidnightService(teamSvc *TeamService, attemptSvc *AttemptService, streakSvc *StreakService, clock Clock) *MidnightService {
	return &MidnightService{
		teamSvc:    teamSvc,
		attemptSvc: attemptSvc,
		streakSvc:  streakSvc,
		clock:      clock,
	}
}

// Start registers the daily schedule and begins running it.
func (s *MidnightService) Start() error {
	s.cron = cron.New(cron.WithLocation(s.clock.Now().Location()))

	if _, err := s.cron.AddFunc(midnightCronSpec, func() {
		s.RunAll("")
	}); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("🕛 Midnight reconciliation scheduled (%s)", midnightCronSpec)
	return nil
}

// Stop halts the schedule. Running jobs finish.
func (s *MidnightService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunAll reconciles both habit types for one day. With an empty override the
// day is yesterday; a manual run may pass an explicit YYYY-MM-DD for backfill.
// Re-running for the same date is safe: already-settled teams are skipped
// based on persisted state, never on job-run memory.
func (s *MidnightService) RunAll(dateOverride string) (build *ReconcileReport, quit *ReconcileReport, err error) {
	checkDate := dateOverride
	if checkDate == "" {
		checkDate = utils.Yesterday(s.clock.Now())
	} else if !utils.ValidDate(checkDate) {
		return nil, nil, fmt.Errorf("invalid reconciliation date %q", dateOverride)
	}

	build = s.RunBuildCheck(checkDate)
	quit = s.RunQuitCheck(checkDate)
	return build, quit, nil
}

// ================== BUILD ==================

// RunBuildCheck evaluates every active BUILD team for the given day. One
// team's failure never aborts the rest.
func (s *MidnightService) RunBuildCheck(checkDate string) *ReconcileReport {
	log.Printf("Running midnight BUILD check for date: %s", checkDate)

	report := &ReconcileReport{Date: checkDate}

	teams, err := s.teamSvc.FindActiveTeamsByHabitType(models.HabitTypeBuild)
	if err != nil {
		log.Printf("❌ Failed to list active BUILD teams: %v", err)
		return report
	}
	report.Teams = len(teams)

	for i := range teams {
		if err := s.processBuildTeam(&teams[i], checkDate); err != nil {
			report.Failed++
			log.Printf("❌ Error processing BUILD team %d: %v", teams[i].ID, err)
			continue
		}
		report.Processed++
	}

	log.Printf("Completed midnight BUILD check for %s: %d/%d teams processed, %d failed",
		checkDate, report.Processed, report.Teams, report.Failed)
	return report
}

func (s *MidnightService) processBuildTeam(team *models.Team, checkDate string) error {
	// Re-read: the team may have completed since the listing.
	team, err := s.teamSvc.FindByID(team.ID)
	if err != nil {
		return err
	}
	if team.Status != models.TeamStatusActive {
		return nil
	}

	members, err := s.teamSvc.GetTeamMembers(team.ID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		log.Printf("Team %d has no members, skipping", team.ID)
		return nil
	}

	attempt, err := s.attemptSvc.GetCurrentAttempt(team.ID)
	if err != nil {
		return err
	}
	if attempt == nil {
		return ErrNoOngoingAttempt
	}

	switch {
	case attempt.LastCountedDate >= checkDate && attempt.LastCountedDate != "":
		// Day already settled by the check-in path or an earlier run.
	case utils.DateOf(attempt.StartedAt) > checkDate:
		// The current attempt began after the check date: that day already
		// ended in a reset and must not be processed again.
	default:
		progress, err := s.attemptSvc.GetDailyProgress(team.ID, checkDate)
		if err != nil {
			return err
		}

		outcome := EvaluateBuildDay(members, progress)
		if outcome.Clean {
			if _, err := s.streakSvc.ApplyCleanDay(team, attempt, checkDate); err != nil {
				return err
			}
		} else {
			if _, err := s.streakSvc.ApplyMiss(team, attempt, outcome); err != nil {
				return err
			}
		}
	}

	return s.seedToday(team.ID, members)
}

// seedToday pre-creates today's empty progress rows for whatever attempt is
// now current, so check-ins have a target row and the cohort is pinned.
func (s *MidnightService) seedToday(teamID uint, members []models.User) error {
	attempt, err := s.attemptSvc.GetCurrentAttempt(teamID)
	if err != nil || attempt == nil {
		return err
	}

	memberIDs := make([]uint, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.ID)
	}

	return s.attemptSvc.CreateDailyProgressForMembers(teamID, attempt.ID, memberIDs, utils.DateOf(s.clock.Now()))
}

// ================== QUIT ==================

// RunQuitCheck increments the streak of every active QUIT team whose day was
// clean. Slips are settled in real time; this pass only counts clean days.
func (s *MidnightService) RunQuitCheck(checkDate string) *ReconcileReport {
	log.Printf("Running midnight QUIT check for date: %s", checkDate)

	report := &ReconcileReport{Date: checkDate}

	teams, err := s.teamSvc.FindActiveTeamsByHabitType(models.HabitTypeQuit)
	if err != nil {
		log.Printf("❌ Failed to list active QUIT teams: %v", err)
		return report
	}
	report.Teams = len(teams)

	for i := range teams {
		if err := s.processQuitTeam(&teams[i], checkDate); err != nil {
			report.Failed++
			log.Printf("❌ Error processing QUIT team %d: %v", teams[i].ID, err)
			continue
		}
		report.Processed++
	}

	log.Printf("Completed midnight QUIT check for %s: %d/%d teams processed, %d failed",
		checkDate, report.Processed, report.Teams, report.Failed)
	return report
}

func (s *MidnightService) processQuitTeam(team *models.Team, checkDate string) error {
	team, err := s.teamSvc.FindByID(team.ID)
	if err != nil {
		return err
	}
	if team.Status != models.TeamStatusActive {
		return nil
	}

	attempt, err := s.attemptSvc.GetCurrentAttempt(team.ID)
	if err != nil {
		return err
	}
	if attempt == nil {
		return ErrNoOngoingAttempt
	}

	// An attempt that began after the check date means a slip already reset
	// the team that day; counting it would double-process the reset.
	if utils.DateOf(attempt.StartedAt) > checkDate {
		return nil
	}

	hadSlips, err := s.attemptSvc.HasSlipsOnDate(team.ID, checkDate)
	if err != nil {
		return err
	}
	if hadSlips {
		// Already handled in real time by the slip report.
		return nil
	}

	_, err = s.streakSvc.ApplyCleanDay(team, attempt, checkDate)
	return err
}
