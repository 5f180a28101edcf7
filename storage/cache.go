package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"todo-web/domain"
)

// Backend is the set of document store operations the cache can wrap.
type Backend interface {
	FetchItems(ctx context.Context) ([]domain.Item, error)
	InsertItems(ctx context.Context, items []domain.Item) ([]domain.Item, error)
	DeleteItem(ctx context.Context, id string) error
	FindList(ctx context.Context, name string) (domain.List, error)
	CreateList(ctx context.Context, list domain.List) (domain.List, error)
	AppendListItem(ctx context.Context, name string, item domain.Item) (domain.Item, error)
	PullListItem(ctx context.Context, name, itemID string) error
	Ping(ctx context.Context) error
}

// Cache wraps a Backend with Redis-backed caching for read operations.
type Cache struct {
	base  Backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base Backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
}

func (c *Cache) FetchItems(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	if c.load(ctx, itemsCacheKey(), &items) {
		return items, nil
	}

	items, err := c.base.FetchItems(ctx)
	if err != nil {
		return nil, err
	}

	// An empty default list is about to be seeded; caching it would only
	// need an immediate eviction.
	if len(items) > 0 {
		c.store(ctx, itemsCacheKey(), items)
	}
	return items, nil
}

func (c *Cache) InsertItems(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	saved, err := c.base.InsertItems(ctx, items)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, itemsCacheKey())
	return saved, nil
}

func (c *Cache) DeleteItem(ctx context.Context, id string) error {
	if err := c.base.DeleteItem(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, itemsCacheKey())
	return nil
}

func (c *Cache) FindList(ctx context.Context, name string) (domain.List, error) {
	var list domain.List
	if c.load(ctx, listCacheKey(name), &list) {
		return list, nil
	}

	list, err := c.base.FindList(ctx, name)
	if err != nil {
		return domain.List{}, err
	}

	c.store(ctx, listCacheKey(name), list)
	return list, nil
}

func (c *Cache) CreateList(ctx context.Context, list domain.List) (domain.List, error) {
	created, err := c.base.CreateList(ctx, list)
	if err != nil {
		return domain.List{}, err
	}
	c.evict(ctx, listCacheKey(list.Name))
	return created, nil
}

func (c *Cache) AppendListItem(ctx context.Context, name string, item domain.Item) (domain.Item, error) {
	saved, err := c.base.AppendListItem(ctx, name, item)
	if err != nil {
		return domain.Item{}, err
	}
	c.evict(ctx, listCacheKey(name))
	return saved, nil
}

func (c *Cache) PullListItem(ctx context.Context, name, itemID string) error {
	if err := c.base.PullListItem(ctx, name, itemID); err != nil {
		return err
	}
	c.evict(ctx, listCacheKey(name))
	return nil
}

// Ping checks the backing store only; Redis being down degrades to
// uncached reads.
func (c *Cache) Ping(ctx context.Context) error {
	return c.base.Ping(ctx)
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, value any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(value)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, key).Result()
}

func itemsCacheKey() string {
	return "items:" + domain.DefaultListName
}

func listCacheKey(name string) string {
	return "list:" + name
}
