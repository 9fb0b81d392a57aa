package models

import (
	"time"
)

// LoginAttempt rows feed the lockout check. There is no FK to users on
// purpose: attempts against unknown usernames are recorded too.
type LoginAttempt struct {
	ID        uint   `gorm:"primarykey"`
	Username  string `gorm:"not null;index"`
	IP        string `gorm:"size:45;not null"`
	Success   bool   `gorm:"default:false"`
	CreatedAt time.Time
}
