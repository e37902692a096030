package config

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisClient backs the availability cache and the meeting teardown
// stream.
var RedisClient *redis.Client

// InitRedis connects using REDIS_ADDR, falling back to REDIS_URI and then
// REDIS_URL. A redis:// or rediss:// value goes through ParseURL so hosted
// setups can pass credentials in a single string.
func InitRedis() error {
	addr := firstEnv("REDIS_ADDR", "REDIS_URI", "REDIS_URL")
	if addr == "" {
		return errors.New("REDIS_ADDR (or REDIS_URI/REDIS_URL) environment variable is not set")
	}

	opt := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return err
		}
		opt = parsed
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return err
	}
	RedisClient = client
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
