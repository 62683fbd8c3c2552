package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const snapshotPrefix = "session/"

// PebbleRepository keeps snapshots in an embedded pebble store, for demo
// builds that run without a database server.
type PebbleRepository struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the store at dir. A nil fs uses the disk.
func OpenPebble(dir string, fs vfs.FS) (*PebbleRepository, error) {
	cache := pebble.NewCache(16 << 20)
	// pebble.Open takes its own reference.
	defer cache.Unref()
	opts := &pebble.Options{
		Cache:              cache,
		MaxOpenFiles:       500,
		FormatMajorVersion: pebble.FormatNewest,
	}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", dir, err)
	}
	return &PebbleRepository{db: db}, nil
}

func snapshotKey(ownerID string) []byte {
	return []byte(snapshotPrefix + ownerID)
}

// prefixEnd is the smallest key greater than every key starting with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	end[len(end)-1]++
	return end
}

func (r *PebbleRepository) Load(_ context.Context, ownerID string) ([]byte, error) {
	value, closer, err := r.db.Get(snapshotKey(ownerID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (r *PebbleRepository) Save(_ context.Context, ownerID string, data []byte) error {
	if err := r.db.Set(snapshotKey(ownerID), data, pebble.Sync); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

func (r *PebbleRepository) Delete(_ context.Context, ownerID string) error {
	if err := r.db.Delete(snapshotKey(ownerID), pebble.Sync); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (r *PebbleRepository) Owners(_ context.Context) ([]string, error) {
	lower := []byte(snapshotPrefix)
	iter, err := r.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: prefixEnd(lower)})
	if err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, string(iter.Key()[len(snapshotPrefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return ids, nil
}

func (r *PebbleRepository) Close() error {
	return r.db.Close()
}
