// models/slip_report.go
package models

import "time"

// SlipReport is one member's admission of a slip on a QUIT habit. The log is
// append-only; several members may slip on the same day but only the first
// report of a day resets the streak.
type SlipReport struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	TeamID    uint         `json:"team_id" gorm:"not null;index;constraint:OnDelete:CASCADE"`
	Team      *Team        `json:"team,omitempty" gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	UserID    uint         `json:"user_id" gorm:"not null;index"`
	User      *User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	AttemptID uint         `json:"attempt_id" gorm:"not null;index;constraint:OnDelete:CASCADE"`
	Attempt   *TeamAttempt `json:"attempt,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`

	ReportedAt          time.Time `json:"reported_at" gorm:"not null;index"`
	ReportedAnonymously bool      `json:"reported_anonymously" gorm:"default:false"`
	Note                string    `json:"note" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
}

func (SlipReport) TableName() string {
	return "slip_reports"
}
