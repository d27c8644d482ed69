package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string // file, redis, memory or none; empty means file
	Dir           string // file backend directory; empty means DefaultDir
	RedisAddr     string // host:port or redis:// URL
	RedisDB       int
	RedisPrefix   string
	MemoryEntries int
}

// Open creates the backend described by opts.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendFile:
		c, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		prefix := opts.RedisPrefix
		if prefix == "" {
			prefix = "knowmap:"
		}
		c, err := NewRedisCache(ctx, opts.RedisAddr, opts.RedisDB, prefix)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendMemory:
		c, err := NewMemoryCache(opts.MemoryEntries)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendNone:
		return NewNullCache(), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
}
