// Package cli implements miractl, the operator tool for the session store.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/storage"
)

// Opener returns the snapshot repository to work on and a function that
// releases it.
type Opener func(cfg *config.Config) (storage.Repository, func(), error)

// NewRootCmd builds the command tree. open is called lazily by the commands
// that touch stored sessions.
func NewRootCmd(cfg *config.Config, open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "miractl",
		Short:         "Inspect and maintain Mira session state",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newPolicyCmd(),
		newSweepCmd(cfg, open),
		newMigrateCmd(cfg, open),
	)
	return root
}

func Execute() {
	cfg := config.Load()
	if err := NewRootCmd(cfg, OpenStore).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// OpenStore opens the repository selected by SNAPSHOT_STORE.
func OpenStore(cfg *config.Config) (storage.Repository, func(), error) {
	switch cfg.SnapshotStore {
	case "pebble":
		repo, err := storage.OpenPebble(cfg.PebblePath, nil)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	case "gorm":
		db, err := database.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return storage.NewGormRepository(db), closeDB, nil
	default:
		return nil, nil, fmt.Errorf("unknown SNAPSHOT_STORE %q", cfg.SnapshotStore)
	}
}
