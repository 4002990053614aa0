// models/team.go
package models

import "time"

type HabitType string

const (
	HabitTypeBuild HabitType = "build"
	HabitTypeQuit  HabitType = "quit"
)

type TeamStatus string

const (
	TeamStatusPending   TeamStatus = "pending"
	TeamStatusActive    TeamStatus = "active"
	TeamStatusCompleted TeamStatus = "completed"
)

type Team struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Name      string     `json:"name" gorm:"not null;size:100"`
	TeamCode  string     `json:"team_code" gorm:"unique;size:10"`
	HabitName string     `json:"habit_name" gorm:"not null;size:100"`
	HabitType HabitType  `json:"habit_type" gorm:"not null;size:10;index"`
	Status    TeamStatus `json:"status" gorm:"not null;default:'pending';index"`

	// Streak counters. Mutated only through the streak engine.
	WantedStreak  int `json:"wanted_streak" gorm:"not null"`
	CurrentStreak int `json:"current_streak" gorm:"default:0"`
	BestStreak    int `json:"best_streak" gorm:"default:0"`

	// Policy flags
	RequireProof       bool `json:"require_proof" gorm:"default:false"`
	AllowAnonymousFail bool `json:"allow_anonymous_fail" gorm:"default:true"`

	OwnerID uint  `json:"owner_id" gorm:"not null"`
	Owner   *User `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`

	StartedAt *time.Time `json:"started_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Team) TableName() string {
	return "teams"
}
