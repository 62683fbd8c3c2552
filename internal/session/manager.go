package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/storage"
)

// Manager owns one State per user. Each state is guarded by its own mutex and
// saved to the repository after every successful update. Operations spanning
// two users lock them one after the other, never both at once.
type Manager struct {
	repo storage.Repository
	opts Options
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	loads    singleflight.Group
}

type entry struct {
	mu    sync.Mutex
	state *State

	// refs counts callers holding the entry and transient marks an entry
	// loaded only for a sweep. Both are guarded by Manager.mu.
	refs      int
	transient bool
}

func NewManager(repo storage.Repository, opts Options) *Manager {
	return &Manager{
		repo:     repo,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// SetClock replaces the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

func (m *Manager) Now() time.Time {
	return m.now()
}

// acquire returns the owner's entry, loading it on first use, and takes a
// reference on it. A transient acquire does not keep a freshly loaded entry
// in memory once it is released; any regular acquire pins it.
func (m *Manager) acquire(ctx context.Context, ownerID string, transient bool) (*entry, error) {
	if ownerID == "" {
		return nil, errors.New("session owner is required")
	}
	for {
		m.mu.Lock()
		if e, ok := m.sessions[ownerID]; ok {
			m.hold(e, transient)
			m.mu.Unlock()
			return e, nil
		}
		m.mu.Unlock()

		v, err, _ := m.loads.Do(ownerID, func() (interface{}, error) {
			m.mu.Lock()
			if e, ok := m.sessions[ownerID]; ok {
				m.mu.Unlock()
				return e, nil
			}
			m.mu.Unlock()

			st, err := m.load(ctx, ownerID, !transient)
			if err != nil {
				return nil, err
			}
			e := &entry{state: st, transient: true}
			m.mu.Lock()
			m.sessions[ownerID] = e
			m.mu.Unlock()
			return e, nil
		})
		if err != nil {
			return nil, err
		}

		e := v.(*entry)
		m.mu.Lock()
		// A shared load may have been released and dropped already.
		if m.sessions[ownerID] == e {
			m.hold(e, transient)
			m.mu.Unlock()
			return e, nil
		}
		m.mu.Unlock()
	}
}

func (m *Manager) hold(e *entry, transient bool) {
	e.refs++
	if !transient {
		e.transient = false
	}
}

// release drops a reference. A transient entry nobody else holds leaves
// memory; its last state is already saved.
func (m *Manager) release(ownerID string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 && e.transient && m.sessions[ownerID] == e {
		delete(m.sessions, ownerID)
	}
}

// load rebuilds a state from its snapshot. With prune set it also sweeps
// whatever expired while it was not in memory; a sweep leaves that to its own
// pass so the pruned records show up in its report.
func (m *Manager) load(ctx context.Context, ownerID string, prune bool) (*State, error) {
	now := m.now()
	data, err := m.repo.Load(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		s := New(ownerID, now)
		s.SetOptions(m.opts)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", ownerID, err)
	}

	s, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if s.OwnerID == "" {
		s.OwnerID = ownerID
	}
	s.SetOptions(m.opts)
	if !prune {
		return s, nil
	}

	if r := s.Sweep(now); !r.Empty() {
		slog.Info("session rehydrated", "owner_id", ownerID, "pruned_confessions", r.Confessions,
			"pruned_threads", r.Threads, "pruned_messages", r.Messages, "pruned_chats", r.Chats)
		if err := m.save(ctx, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (m *Manager) save(ctx context.Context, s *State) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := m.repo.Save(ctx, s.OwnerID, data); err != nil {
		return fmt.Errorf("save session %s: %w", s.OwnerID, err)
	}
	return nil
}

// Update runs fn on the owner's state under its lock and saves the result.
// Reducers leave the state untouched when they fail, so an fn error skips the
// save. A failed save drops the in-memory copy so the next access reloads the
// last persisted snapshot.
func (m *Manager) Update(ctx context.Context, ownerID string, fn func(*State) error) error {
	_, err := m.update(ctx, ownerID, false, func(s *State) (bool, error) {
		return true, fn(s)
	})
	return err
}

func (m *Manager) update(ctx context.Context, ownerID string, transient bool, fn func(*State) (bool, error)) (bool, error) {
	e, err := m.acquire(ctx, ownerID, transient)
	if err != nil {
		return false, err
	}
	defer m.release(ownerID, e)
	e.mu.Lock()
	defer e.mu.Unlock()

	changed, err := fn(e.state)
	if err != nil || !changed {
		return false, err
	}
	if err := m.save(ctx, e.state); err != nil {
		m.Evict(ownerID)
		return false, err
	}
	return true, nil
}

// View runs fn on the owner's state under its lock without saving.
func (m *Manager) View(ctx context.Context, ownerID string, fn func(*State) error) error {
	e, err := m.acquire(ctx, ownerID, false)
	if err != nil {
		return err
	}
	defer m.release(ownerID, e)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.state)
}

// Evict drops the in-memory copy of ownerID.
func (m *Manager) Evict(ownerID string) {
	m.mu.Lock()
	delete(m.sessions, ownerID)
	m.mu.Unlock()
}

// Delete removes the owner's state from memory and storage.
func (m *Manager) Delete(ctx context.Context, ownerID string) error {
	m.Evict(ownerID)
	if err := m.repo.Delete(ctx, ownerID); err != nil {
		return fmt.Errorf("delete session %s: %w", ownerID, err)
	}
	return nil
}

// Loaded returns the ids of the states currently in memory.
func (m *Manager) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SweepAll sweeps every persisted and loaded state at the current time and
// saves the ones that changed. Owners that were not in memory are released
// again afterwards. A failing owner does not stop the sweep; the first error
// is returned with the combined report.
func (m *Manager) SweepAll(ctx context.Context) (PruneReport, error) {
	owners, err := m.repo.Owners(ctx)
	if err != nil {
		return PruneReport{}, fmt.Errorf("list session owners: %w", err)
	}
	seen := make(map[string]bool, len(owners))
	for _, id := range owners {
		seen[id] = true
	}
	for _, id := range m.Loaded() {
		if !seen[id] {
			owners = append(owners, id)
		}
	}

	var (
		total    PruneReport
		firstErr error
	)
	now := m.now()
	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		_, err := m.update(ctx, ownerID, true, func(s *State) (bool, error) {
			r := s.Sweep(now)
			total.Add(r)
			return !r.Empty(), nil
		})
		if err != nil {
			slog.Error("session sweep failed", "owner_id", ownerID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return total, firstErr
}
