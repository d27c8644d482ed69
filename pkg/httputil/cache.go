package httputil

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/knowmap/pkg/cache"
)

// Cache stores decoded HTTP responses as JSON in a [cache.Cache] backend.
//
// Keys are built with [cache.Keyer.HTTPKey] from the cache namespace and the
// caller's key, so the content client and any other HTTP collaborator can
// share one backend. A nil *Cache is valid and behaves as an always-missing
// cache, which lets clients treat caching as optional.
//
// Use [Cache.Namespace] to derive scoped views:
//
//	content := c.Namespace("content")
//	content.Set(ctx, "nodes/pca", doc)  // key becomes http:content:nodes/pca
type Cache struct {
	backend   cache.Cache
	keyer     cache.Keyer
	ttl       time.Duration
	namespace string
}

// NewCache wraps backend. A nil keyer selects [cache.NewDefaultKeyer]; a
// ttl <= 0 stores entries without expiry.
func NewCache(backend cache.Cache, keyer cache.Keyer, ttl time.Duration) *Cache {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Cache{backend: backend, keyer: keyer, ttl: ttl}
}

// TTL returns the time-to-live applied by Set.
func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Namespace returns a view whose keys live under ns. Chained calls join
// namespaces with a slash.
func (c *Cache) Namespace(ns string) *Cache {
	if c == nil {
		return nil
	}
	child := *c
	switch {
	case ns == "":
	case c.namespace == "":
		child.namespace = ns
	default:
		child.namespace = c.namespace + "/" + ns
	}
	return &child
}

// Get loads the value stored under key into v. It reports false on a miss.
// An entry that no longer decodes into v is treated as a miss.
func (c *Cache) Get(ctx context.Context, key string, v any) (bool, error) {
	if c == nil || c.backend == nil {
		return false, nil
	}
	data, ok, err := c.backend.Get(ctx, c.key(key))
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// Set stores v under key, replacing any previous entry.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	if c == nil || c.backend == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, c.key(key), data, c.ttl)
}

// Delete drops the entry stored under key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil || c.backend == nil {
		return nil
	}
	return c.backend.Delete(ctx, c.key(key))
}

func (c *Cache) key(key string) string {
	return c.keyer.HTTPKey(c.namespace, key)
}
