package repositories

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCacheRepository - кеш в памяти процесса, когда Redis не настроен.
type MemoryCacheRepository struct {
	cache *gocache.Cache
}

func NewMemoryCacheRepository(defaultExpiration, cleanupInterval time.Duration) CacheRepositoryInterface {
	return &MemoryCacheRepository{cache: gocache.New(defaultExpiration, cleanupInterval)}
}

func (r *MemoryCacheRepository) Get(_ context.Context, key string) (string, error) {
	value, ok := r.cache.Get(key)
	if !ok {
		return "", ErrCacheMiss
	}
	s, ok := value.(string)
	if !ok {
		return "", ErrCacheMiss
	}
	return s, nil
}

func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	r.cache.Set(key, fmt.Sprint(value), expiration)
	return nil
}

func (r *MemoryCacheRepository) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		r.cache.Delete(key)
	}
	return nil
}
