// Package cache puts a small JSON get/set interface in front of Redis so
// the services can run against in-memory fakes in tests.
package cache

import (
	"context"
	"time"
)

// Cache stores JSON documents under string keys. An absent key is a miss,
// not an error; only store failures surface as errors.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
