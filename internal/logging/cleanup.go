package logging

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/models"
)

// Retention is how long system_logs rows are kept.
const Retention = 30 * 24 * time.Hour

// StartCleanup runs a daily goroutine that deletes system_logs older than Retention.
func StartCleanup(db *gorm.DB, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := Cleanup(db, time.Now().Add(-Retention))
				if err != nil {
					slog.Error("log cleanup failed", "component", "logging", "error", err)
				} else if deleted > 0 {
					slog.Info("log cleanup completed", "deleted", deleted)
				}
			case <-done:
				return
			}
		}
	}()
}

// Cleanup deletes system_logs written before cutoff.
func Cleanup(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
