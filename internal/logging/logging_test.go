package logging

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "logs.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.SystemLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestDBHandler_WritesErrorsOnStop(t *testing.T) {
	db := setupDB(t)
	h := NewDBHandler(db, time.Hour)
	log := slog.New(h).With("component", "sweeper")

	log.Info("ignored")
	log.Error("sweep failed", "owner_id", "u1", "error", "boom", "pruned", 3)
	h.Stop()

	var rows []models.SystemLog
	if err := db.Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	got := rows[0]
	if got.Component != "sweeper" || got.Error != "boom" || got.UserID == nil || *got.UserID != "u1" {
		t.Errorf("row = %+v", got)
	}
	if string(got.Extra) != `{"pruned":3}` {
		t.Errorf("extra = %s", got.Extra)
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	db := setupDB(t)
	h := NewDBHandler(db, time.Hour)
	multi := NewMultiHandler(slog.NewTextHandler(discard{}, nil), h)

	if !multi.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should reach the text handler")
	}
	slog.New(multi).Error("x")
	h.Stop()

	var n int64
	db.Model(&models.SystemLog{}).Count(&n)
	if n != 1 {
		t.Errorf("count = %d", n)
	}
}

func TestCleanup(t *testing.T) {
	db := setupDB(t)
	now := time.Now()
	db.Create(&models.SystemLog{ID: newID(), Timestamp: now.Add(-Retention - time.Hour), Level: "ERROR"})
	db.Create(&models.SystemLog{ID: newID(), Timestamp: now, Level: "ERROR"})

	deleted, err := Cleanup(db, now.Add(-Retention))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d", deleted)
	}
}

func TestShouldIgnore(t *testing.T) {
	if !shouldIgnore(context.Canceled) || shouldIgnore(errors.New("db down")) {
		t.Error("unexpected filter result")
	}
	CaptureError(nil, "no-op")
}

func newID() uuid.UUID { return uuid.New() }

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
