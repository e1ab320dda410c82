package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/vendbees/backend-go/internal/config"
)

const (
	defaultDashboardTTL = time.Minute
	redisPingTimeout    = 3 * time.Second
)

// connectRedis opens a client and checks the server answers before the cache is used
func connectRedis(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func dashboardTTL(cfg config.CacheConfig) time.Duration {
	if cfg.DashboardTTLSeconds <= 0 {
		return defaultDashboardTTL
	}
	return time.Duration(cfg.DashboardTTLSeconds) * time.Second
}

// buildRedisOptions prefers REDIS_URL and falls back to host/port/db settings
func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:         net.JoinHostPort(host, port),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  redisPingTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}, nil
}

// unlinkMatching removes every key matching pattern. Keys are collected with SCAN and
// unlinked in pipelined batches so the server is never blocked by a single large call.
func unlinkMatching(ctx context.Context, client *redis.Client, pattern string, batch int) (int, error) {
	var (
		removed int
		pending []string
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		pipe := client.Pipeline()
		pipe.Unlink(ctx, pending...)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		removed += len(pending)
		pending = pending[:0]
		return nil
	}

	iter := client.Scan(ctx, 0, pattern, int64(batch)).Iterator()
	for iter.Next(ctx) {
		pending = append(pending, iter.Val())
		if len(pending) >= batch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan failed: %w", err)
	}
	return removed, flush()
}
