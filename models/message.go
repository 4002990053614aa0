// models/message.go - Team Chat System Messages
package models

import "time"

type SystemMessageType string

const (
	SystemStreakCompleted    SystemMessageType = "streak_completed"
	SystemStreakMilestone    SystemMessageType = "streak_milestone"
	SystemStreakFailed       SystemMessageType = "streak_failed"
	SystemChallengeCompleted SystemMessageType = "challenge_completed"
)

// Message is a system message posted into a team's chat by the habit engine
// (milestones, resets, completions). User-to-user chat is out of scope.
type Message struct {
	ID     uint  `json:"id" gorm:"primaryKey"`
	TeamID uint  `json:"team_id" gorm:"not null;index;constraint:OnDelete:CASCADE"`
	Team   *Team `json:"team,omitempty" gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`

	// Actor is the user the message is about, when not anonymous.
	ActorUserID *uint `json:"actor_user_id"`
	Actor       *User `json:"actor,omitempty" gorm:"foreignKey:ActorUserID"`

	SystemType SystemMessageType `json:"system_type" gorm:"not null;size:30;index"`
	Content    string            `json:"content" gorm:"not null;type:text"`

	// JSON-encoded structured payload (day numbers, attempt numbers, user ids).
	Metadata string `json:"metadata" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (Message) TableName() string {
	return "messages"
}
