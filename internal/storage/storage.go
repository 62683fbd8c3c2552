// Package storage persists encoded session snapshots.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no snapshot was ever saved for an owner.
var ErrNotFound = errors.New("snapshot not found")

// Repository stores one opaque snapshot per owner.
type Repository interface {
	Load(ctx context.Context, ownerID string) ([]byte, error)
	Save(ctx context.Context, ownerID string, data []byte) error
	Delete(ctx context.Context, ownerID string) error
	Owners(ctx context.Context) ([]string, error)
}
