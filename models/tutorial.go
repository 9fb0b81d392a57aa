package models

import (
	"time"
)

type Tutorial struct {
	ID          uint   `gorm:"primarykey"`
	Title       string `gorm:"not null"`
	URL         string `gorm:"not null"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
