package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Block hides everything the blocked user posts from the blocker.
type Block struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BlockerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_blocks_pair" json:"blocker_id"`
	BlockedID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_blocks_pair" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
	Blocker   User      `gorm:"foreignKey:BlockerID" json:"-"`
	Blocked   User      `gorm:"foreignKey:BlockedID" json:"-"`
}

func (b *Block) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (Block) TableName() string {
	return "blocks"
}
