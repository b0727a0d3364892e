package utils

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache 带过期时间的本地 LRU 缓存，并发安全
type TTLCache[V any] struct {
	lruCache *lru.Cache[string, cacheItem[V]]
	ttl      time.Duration
	now      func() time.Time
}

func NewTTLCache[V any](size int, ttl time.Duration) (*TTLCache[V], error) {
	l, err := lru.New[string, cacheItem[V]](size)
	if err != nil {
		return nil, fmt.Errorf("create LRU cache: %w", err)
	}
	return &TTLCache[V]{lruCache: l, ttl: ttl, now: time.Now}, nil
}

// Set 写入缓存，使用构造时的 TTL
func (c *TTLCache[V]) Set(key string, value V) {
	c.lruCache.Add(key, cacheItem[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Get 读取缓存，不存在或已过期返回 false
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	item, ok := c.lruCache.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(item.expiresAt) {
		c.lruCache.Remove(key)
		return zero, false
	}
	return item.value, true
}

func (c *TTLCache[V]) Len() int {
	return c.lruCache.Len()
}
