// models/daily_progress.go
package models

import "time"

// DailyProgress is one member's completion record for one day of a BUILD
// habit. Unique per (team, user, date); rows are seeded empty by the
// midnight job and upserted by check-ins.
type DailyProgress struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	TeamID    uint         `json:"team_id" gorm:"not null;uniqueIndex:idx_progress_team_user_date;constraint:OnDelete:CASCADE"`
	Team      *Team        `json:"team,omitempty" gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	AttemptID uint         `json:"attempt_id" gorm:"not null;index;constraint:OnDelete:CASCADE"`
	Attempt   *TeamAttempt `json:"attempt,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
	UserID    uint         `json:"user_id" gorm:"not null;uniqueIndex:idx_progress_team_user_date"`
	User      *User        `json:"user,omitempty" gorm:"foreignKey:UserID"`

	// Date in YYYY-MM-DD (UTC).
	Date string `json:"date" gorm:"not null;size:10;uniqueIndex:idx_progress_team_user_date;index"`

	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`
	ProofURL    string     `json:"proof_url" gorm:"size:500"`
	ProofType   string     `json:"proof_type" gorm:"size:10"` // image, video

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DailyProgress) TableName() string {
	return "daily_progress"
}
