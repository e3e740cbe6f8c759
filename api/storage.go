package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/harlequingg/todo-webapp/internal/auth"
	"github.com/harlequingg/todo-webapp/internal/store"
)

type backends struct {
	store   store.Store
	revoker auth.Revoker
	close   func()
}

// openBackends connects the user store and, when REDIS_URL is set, Redis
// for the revocation list and task cache. Any unreachable backend is fatal.
func openBackends(cfg config, logger *log.Logger) (*backends, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{
		URI:                cfg.db.uri,
		Database:           cfg.db.name,
		MaxOpenConnections: cfg.db.maxOpenConnections,
		MaxIdleConnections: cfg.db.maxIdleConnections,
		MaxIdleTime:        cfg.db.maxIdleTime,
		Timeout:            cfg.db.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	logger.Info("established a connection with the user store")

	if cfg.redis.url == "" {
		revoker := auth.NewMemoryRevoker()
		logger.Warn("REDIS_URL not set: sessions are revoked in process memory and tasks are not cached")
		return &backends{
			store:   st,
			revoker: revoker,
			close: func() {
				revoker.Close()
				_ = st.Close()
			},
		}, nil
	}

	opts, err := redis.ParseURL(cfg.redis.url)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = st.Close()
		_ = rc.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	logger.Info("established a connection with redis")

	var cached store.Store = st
	if cfg.redis.taskCacheTTL > 0 {
		cached = store.NewCache(st, rc, cfg.redis.taskCacheTTL, logger)
	}
	return &backends{
		store:   cached,
		revoker: auth.NewRedisRevoker(rc),
		close: func() {
			_ = rc.Close()
			_ = st.Close()
		},
	}, nil
}
