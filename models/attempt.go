// models/attempt.go - Attempt Ledger Data Model
package models

import "time"

type AttemptEndReason string

const (
	AttemptOngoing   AttemptEndReason = "ongoing"
	AttemptFailed    AttemptEndReason = "failed"
	AttemptCompleted AttemptEndReason = "completed"
)

// TeamAttempt is one continuous run of a team's challenge, from start (or
// reset) until it fails or completes. Attempts are append-only history:
// once EndReason leaves "ongoing" the row is never mutated again.
type TeamAttempt struct {
	ID            uint  `json:"id" gorm:"primaryKey"`
	TeamID        uint  `json:"team_id" gorm:"not null;index;constraint:OnDelete:CASCADE"`
	Team          *Team `json:"team,omitempty" gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	AttemptNumber int   `json:"attempt_number" gorm:"not null"`

	StartedAt   time.Time        `json:"started_at" gorm:"not null"`
	EndedAt     *time.Time       `json:"ended_at"`
	DaysReached int              `json:"days_reached" gorm:"default:0"`
	EndReason   AttemptEndReason `json:"end_reason" gorm:"not null;default:'ongoing';index"`

	// Last day (YYYY-MM-DD) whose clean-day transition was applied to this
	// attempt. Guards against counting the same day twice when the check-in
	// path and the midnight job both evaluate it.
	LastCountedDate string `json:"last_counted_date" gorm:"size:10"`

	// Failure attribution
	FailedByUserID *uint `json:"failed_by_user_id"`
	FailedBy       *User `json:"failed_by,omitempty" gorm:"foreignKey:FailedByUserID"`
	WasAnonymous   bool  `json:"was_anonymous" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamAttempt) TableName() string {
	return "team_attempts"
}
