package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedRepository reads snapshots through a redis cache in front of another
// repository. Writes go to the backing store first and then refresh the cache.
// Cache failures are logged and never fail the call. A nil client disables
// caching.
type CachedRepository struct {
	next Repository
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedRepository(next Repository, rdb *redis.Client, ttl time.Duration) *CachedRepository {
	return &CachedRepository{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(ownerID string) string {
	return "mira:session:" + ownerID
}

func (r *CachedRepository) Load(ctx context.Context, ownerID string) ([]byte, error) {
	if r.rdb != nil {
		data, err := r.rdb.Get(ctx, cacheKey(ownerID)).Bytes()
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, redis.Nil) {
			slog.Warn("snapshot cache read failed", "owner_id", ownerID, "error", err)
		}
	}

	data, err := r.next.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, ownerID, data)
	return data, nil
}

func (r *CachedRepository) Save(ctx context.Context, ownerID string, data []byte) error {
	if err := r.next.Save(ctx, ownerID, data); err != nil {
		if r.rdb != nil {
			r.rdb.Del(ctx, cacheKey(ownerID))
		}
		return err
	}
	r.fill(ctx, ownerID, data)
	return nil
}

func (r *CachedRepository) Delete(ctx context.Context, ownerID string) error {
	if r.rdb != nil {
		if err := r.rdb.Del(ctx, cacheKey(ownerID)).Err(); err != nil {
			slog.Warn("snapshot cache delete failed", "owner_id", ownerID, "error", err)
		}
	}
	return r.next.Delete(ctx, ownerID)
}

func (r *CachedRepository) Owners(ctx context.Context) ([]string, error) {
	return r.next.Owners(ctx)
}

func (r *CachedRepository) fill(ctx context.Context, ownerID string, data []byte) {
	if r.rdb == nil {
		return
	}
	if err := r.rdb.Set(ctx, cacheKey(ownerID), data, r.ttl).Err(); err != nil {
		slog.Warn("snapshot cache write failed", "owner_id", ownerID, "error", err)
	}
}

// NewRedisClient parses a redis:// URL. An empty URL returns nil, which the
// cache and the rate limiter treat as disabled.
func NewRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
