package models

import (
	"time"

	"gorm.io/datatypes"
)

// SessionSnapshot is the encoded state of one user's session.
type SessionSnapshot struct {
	OwnerID   string         `gorm:"primaryKey;size:64" json:"owner_id"`
	Version   int            `gorm:"not null" json:"version"`
	Data      datatypes.JSON `gorm:"not null" json:"data"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
}

func (SessionSnapshot) TableName() string {
	return "session_snapshots"
}
