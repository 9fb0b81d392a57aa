package models

import (
	"time"
)

const (
	RoleStandard = "standard"
	RoleAdmin    = "admin"
)

type User struct {
	ID                uint   `gorm:"primarykey"`
	Username          string `gorm:"unique;not null"`
	Password          string `gorm:"not null"`
	Role              string `gorm:"default:'standard'"`
	MaxInstances      int    `gorm:"default:3"`
	FirstName         string
	LastName          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	IsActive          bool `gorm:"default:true"`
	ResetToken        *string
	ResetTokenExpires *time.Time
}
