package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker remembers logged-out sessions until their tokens expire.
type Revoker interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	Revoked(ctx context.Context, sessionID string) (bool, error)
}

type RedisRevoker struct {
	client *redis.Client
}

func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

func (r *RedisRevoker) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKey(sessionID), 1, ttl).Err()
}

func (r *RedisRevoker) Revoked(ctx context.Context, sessionID string) (bool, error) {
	err := r.client.Get(ctx, revokedKey(sessionID)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

func revokedKey(sessionID string) string {
	return "session:revoked:" + sessionID
}

// MemoryRevoker is a process-local revocation list swept once a minute.
type MemoryRevoker struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	done    chan struct{}
	once    sync.Once
}

func NewMemoryRevoker() *MemoryRevoker {
	r := &MemoryRevoker{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go func(r *MemoryRevoker) {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep(time.Now())
			case <-r.done:
				return
			}
		}
	}(r)
	return r
}

func (r *MemoryRevoker) Revoke(_ context.Context, sessionID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[sessionID] = until
	return nil
}

func (r *MemoryRevoker) Revoked(_ context.Context, sessionID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	until, ok := r.entries[sessionID]
	return ok && time.Now().Before(until), nil
}

func (r *MemoryRevoker) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, until := range r.entries {
		if now.After(until) {
			delete(r.entries, id)
		}
	}
}

// Close stops the sweeper.
func (r *MemoryRevoker) Close() {
	r.once.Do(func() { close(r.done) })
}
