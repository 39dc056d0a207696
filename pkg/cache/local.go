package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// localCache is a bounded in-process cache on an expirable LRU. Entries
// share the configured default TTL; per-call expirations shorter than
// it are honored by storing a deadline next to the value.
type localCache struct {
	lru *expirable.LRU[string, entry]
	mu  sync.Mutex
}

type entry struct {
	value    interface{}
	deadline time.Time // zero means the LRU TTL alone governs expiry
}

func NewLocalCache(config LocalConfig) Cache {
	size := config.MaxSize
	if size <= 0 {
		size = 1000
	}
	ttl := config.DefaultExpiration
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &localCache{lru: expirable.NewLRU[string, entry](size, nil, ttl)}
}

func (lc *localCache) Get(ctx context.Context, key string) (interface{}, bool) {
	e, ok := lc.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !e.deadline.IsZero() && time.Now().After(e.deadline) {
		lc.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (lc *localCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	var deadline time.Time
	if expiration > 0 {
		deadline = time.Now().Add(expiration)
	}
	lc.lru.Add(key, entry{value: value, deadline: deadline})
	return nil
}

func (lc *localCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if _, exists := lc.Get(ctx, key); exists {
		return false, nil
	}
	return true, lc.Set(ctx, key, value, expiration)
}

func (lc *localCache) Delete(ctx context.Context, key string) error {
	lc.lru.Remove(key)
	return nil
}

func (lc *localCache) Exists(ctx context.Context, key string) bool {
	_, ok := lc.Get(ctx, key)
	return ok
}

func (lc *localCache) Increment(ctx context.Context, key string, value int64) (int64, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	current := int64(0)
	if v, ok := lc.Get(ctx, key); ok {
		n, ok := v.(int64)
		if !ok {
			return 0, fmt.Errorf("value at %q is not a counter", key)
		}
		current = n
	}
	current += value
	return current, lc.Set(ctx, key, current, 0)
}

func (lc *localCache) Close() error {
	lc.lru.Purge()
	return nil
}
