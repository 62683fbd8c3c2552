package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/models"
)

// GormRepository keeps snapshots in the session_snapshots table.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Load(ctx context.Context, ownerID string) ([]byte, error) {
	var snap models.SessionSnapshot
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	return []byte(snap.Data), nil
}

func (r *GormRepository) Save(ctx context.Context, ownerID string, data []byte) error {
	var header struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return fmt.Errorf("snapshot is not valid json: %w", err)
	}

	snap := models.SessionSnapshot{
		OwnerID:   ownerID,
		Version:   header.Version,
		Data:      datatypes.JSON(data),
		UpdatedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "data", "updated_at"}),
	}).Create(&snap).Error
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, ownerID string) error {
	return r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.SessionSnapshot{}).Error
}

func (r *GormRepository) Owners(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.SessionSnapshot{}).Order("owner_id").Pluck("owner_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list snapshot owners: %w", err)
	}
	return ids, nil
}
