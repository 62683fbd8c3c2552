// Package sweeper runs the ephemeral content pruner on a cron schedule.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
)

// Timeout bounds a single scheduled sweep.
const Timeout = 2 * time.Minute

type Sweeper struct {
	cron     *cron.Cron
	sessions *session.Manager
}

// New schedules SweepAll on schedule (standard five-field cron or @every).
// A run that is still going when the next tick fires makes that tick a no-op.
func New(sessions *session.Manager, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sessions: sessions,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		logging.CaptureError(err, "scheduled sweep failed", "component", "sweeper")
	}
}

// RunOnce sweeps every session now and logs what was removed.
func (s *Sweeper) RunOnce(ctx context.Context) (session.PruneReport, error) {
	start := time.Now()
	report, err := s.sessions.SweepAll(ctx)
	if !report.Empty() {
		slog.Info("sweep completed",
			"component", "sweeper",
			"messages", report.Messages,
			"confessions", report.Confessions,
			"threads", report.Threads,
			"chats", report.Chats,
			"crushes", report.Crushes,
			"reveals", report.Reveals,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return report, err
}

func (s *Sweeper) Start() {
	s.cron.Start()
	slog.Info("sweeper started", "entries", len(s.cron.Entries()))
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
