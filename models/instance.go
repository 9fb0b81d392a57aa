package models

import (
	"time"
)

const (
	StatusConnecting   = "connecting"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Instance is one tenant-owned gateway connection. InstanceID is the
// identifier assigned by the remote API; InstanceName is the
// user-chosen alphanumeric handle used in API paths.
type Instance struct {
	ID           uint   `gorm:"primarykey"`
	UserID       uint   `gorm:"not null;index"`
	InstanceName string `gorm:"unique;not null"`
	InstanceID   string `gorm:"index"`
	Integration  string `gorm:"default:'WHATSAPP-BAILEYS'"`
	Status       string `gorm:"default:'connecting'"`

	RejectCall      bool
	MsgCall         string
	GroupsIgnore    bool
	AlwaysOnline    bool
	ReadMessages    bool
	ReadStatus      bool
	SyncFullHistory bool

	Token string

	// Set when a remote write succeeded but the matching local write
	// did not (or the reverse, as with a failed remote logout);
	// cleared by the next successful connection-state poll.
	ReconcileNeeded bool `gorm:"default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
	User      User `gorm:"foreignkey:UserID"`
}
