package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/caffeinepub/momentum-sub000/domain"
	"github.com/caffeinepub/momentum-sub000/engine"
)

type backend interface {
	FetchAllTasks(ctx context.Context) ([]domain.Task, error)
	Apply(ctx context.Context, moves []engine.TaskMove) error
}

// Cache wraps a backend client with Redis-backed caching of the task list.
// Every confirmed move evicts the cached board so the next refresh reads the
// authoritative state. Redis being down never fails a request; the cache
// silently degrades to the backing client.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
	key   string
}

// NewCache creates a caching wrapper. userID scopes the cache key so two
// sessions never read each other's board.
func NewCache(base backend, client *redis.Client, userID string, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl, key: boardCacheKey(userID)}
}

func (c *Cache) FetchAllTasks(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := c.loadFromCache(ctx); ok {
		return tasks, nil
	}

	tasks, err := c.base.FetchAllTasks(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, tasks)
	return tasks, nil
}

func (c *Cache) Apply(ctx context.Context, moves []engine.TaskMove) error {
	if err := c.base.Apply(ctx, moves); err != nil {
		return err
	}

	c.evict(ctx)
	return nil
}

func (c *Cache) loadFromCache(ctx context.Context) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, c.key).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, c.key).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, c.key).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, c.key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, c.key).Result()
}

func boardCacheKey(userID string) string {
	return "board:" + userID
}
