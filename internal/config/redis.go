package config

// Redis backs the rate limiter and the diagram read cache.  Both degrade to
// pass-through when the client is nil, so a missing Redis never blocks startup.

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from environment variables:
//
//	REDIS_ADDR      host:port (REDIS_HOST + REDIS_PORT take precedence)
//	REDIS_PASSWORD  optional password
//	REDIS_DB        database number (default 0)
//	REDIS_TLS       enable TLS when "true" or "1"
//
// ok is false when no Redis endpoint is configured at all.
func RedisOptions() (opts *redis.Options, ok bool) {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		return nil, false
	}
	opts = &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if envBool("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, true
}

// NewRedisClient connects using RedisOptions and pings with a short timeout.
// The returned client is nil when Redis is not configured or unreachable.
func NewRedisClient() *redis.Client {
	opts, ok := RedisOptions()
	if !ok {
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
