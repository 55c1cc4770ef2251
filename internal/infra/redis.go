package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewRedis connects to the redis:// URL and pings it. blockingWorkers is
// the number of goroutines that will sit in BRPOP; each pins a connection
// for the length of its wait, so the pool is grown to leave headroom for
// enqueues, DLQ pushes and health checks.
func NewRedis(redisURL string, blockingWorkers int) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	if floor := blockingWorkers + 4; opts.PoolSize < floor {
		opts.PoolSize = floor
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Int("pool_size", opts.PoolSize).Msg("redis connected")
	return rdb, nil
}
