// models/user.go
package models

import (
	"time"
)

type User struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Username string  `gorm:"uniqueIndex;not null" json:"username"`
	Email    *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Password string  `gorm:"not null" json:"-"`
	NickName string  `json:"nick_name"`
	Avatar   string  `json:"avatar"`
	IsGuest  bool    `gorm:"default:false" json:"is_guest"`
	IsAdmin  bool    `gorm:"default:false" json:"is_admin"`

	// A user belongs to at most one team at a time.
	TeamID *uint `gorm:"index" json:"team_id,omitempty"`
	Team   *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`

	// Last day (YYYY-MM-DD) the user checked in, for quick client display.
	LastCheckInDate string `gorm:"size:10" json:"last_check_in_date"`

	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	LastActive time.Time `json:"last_active"`
}

func (User) TableName() string {
	return "users"
}
