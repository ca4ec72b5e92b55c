package store

import (
	"fmt"
	"time"
)

// BackendOptions carries the connection settings for every driver
type BackendOptions struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

// OpenBackend opens the backend named by driver
func OpenBackend(driver string, opts BackendOptions) (Backend, error) {
	switch driver {
	case "memory", "":
		return NewMemoryBackend(), nil
	case "redis":
		return NewRedisBackend(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisTTL)
	case "postgres":
		return NewPostgresBackend(opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
