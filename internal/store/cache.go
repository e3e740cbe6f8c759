package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/harlequingg/todo-webapp/internal/data"
)

// Cache serves GetTasks from Redis and evicts the entry on every task
// mutation. Redis failures fall back to the wrapped store.
type Cache struct {
	Store
	redis  *redis.Client
	ttl    time.Duration
	logger log.FieldLogger
}

// NewCache wraps base with a Redis-backed task list cache.
func NewCache(base Store, client *redis.Client, ttl time.Duration, logger log.FieldLogger) *Cache {
	if base == nil {
		panic("store.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{Store: base, redis: client, ttl: ttl, logger: logger}
}

func (c *Cache) GetTasks(ctx context.Context, username string) ([]data.Task, error) {
	if tasks, ok := c.load(ctx, username); ok {
		return tasks, nil
	}
	tasks, err := c.Store.GetTasks(ctx, username)
	if err != nil {
		return nil, err
	}
	c.save(ctx, username, tasks)
	return tasks, nil
}

func (c *Cache) AppendTask(ctx context.Context, username string, task data.Task) error {
	if err := c.Store.AppendTask(ctx, username, task); err != nil {
		return err
	}
	c.evict(ctx, username)
	return nil
}

func (c *Cache) RemoveTask(ctx context.Context, username, taskID string) error {
	if err := c.Store.RemoveTask(ctx, username, taskID); err != nil {
		return err
	}
	c.evict(ctx, username)
	return nil
}

func (c *Cache) ReplaceTask(ctx context.Context, username, taskID string, task data.Task) error {
	if err := c.Store.ReplaceTask(ctx, username, taskID, task); err != nil {
		return err
	}
	c.evict(ctx, username)
	return nil
}

func (c *Cache) load(ctx context.Context, username string) ([]data.Task, bool) {
	if c.redis == nil || c.ttl == 0 {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, tasksCacheKey(username)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Warn("task cache read failed")
			_ = c.redis.Del(ctx, tasksCacheKey(username)).Err()
		}
		return nil, false
	}
	var tasks []data.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(username)).Err()
		return nil, false
	}
	if tasks == nil {
		tasks = []data.Task{}
	}
	return tasks, true
}

func (c *Cache) save(ctx context.Context, username string, tasks []data.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, tasksCacheKey(username), raw, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("task cache write failed")
	}
}

func (c *Cache) evict(ctx context.Context, username string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, tasksCacheKey(username)).Err(); err != nil {
		c.logger.WithError(err).WithField("username", username).Warn("task cache eviction failed")
	}
}

func tasksCacheKey(username string) string {
	return "tasks:" + username
}
