// database/migrate.go - Database Migration Runner
package database

import (
	"log"

	"github.com/nouralddin-abdullah/together/models"

	"gorm.io/gorm"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("🔄 Running database migrations...")

	if err := MigrateHabitModels(db); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	log.Println("✅ All migrations completed successfully")
}

// MigrateHabitModels migrates every table and index of the habit backend.
// Exposed separately so tests can run it against their own database handle.
func MigrateHabitModels(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamAttempt{},
		&models.DailyProgress{},
		&models.SlipReport{},
		&models.Message{},
	); err != nil {
		return err
	}

	return createHabitIndexes(db)
}

// createHabitIndexes creates database indexes for habit tracking tables
func createHabitIndexes(db *gorm.DB) error {
	// Teams: the midnight job scans active teams per habit type.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_teams_status_habit_type ON teams(status, habit_type)")

	// Attempts: lookups are always by team, and the one-ongoing-attempt
	// invariant is backed by a partial unique index so two concurrent
	// transitions cannot both insert an ongoing attempt.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_attempts_team ON team_attempts(team_id, attempt_number)")
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_one_ongoing ON team_attempts(team_id) WHERE end_reason = 'ongoing'").Error; err != nil {
		return err
	}

	// Daily progress: the unique (team, user, date) index comes from the
	// model tags; add the per-day fetch path.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_progress_team_date ON daily_progress(team_id, date)")

	// Slip reports: hasSlipsOnDate scans by team and report time.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_slips_team_reported ON slip_reports(team_id, reported_at)")

	// Messages: chat history is read newest-first per team.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_team_created ON messages(team_id, created_at DESC)")

	return nil
}
