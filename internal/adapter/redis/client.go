package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/pscheid92/todolists/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
)

// NewClient creates an instrumented client from a URL (e.g. "redis://localhost:6379/0").
// It does not contact the server; use Ping for that.
func NewClient(redisURL string, m *metrics.RedisMetrics) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = readTimeout
	opts.WriteTimeout = writeTimeout

	rdb := goredis.NewClient(opts)
	// Metrics wrap the breaker so rejected commands are counted too.
	rdb.AddHook(NewMetricsHook(m))
	rdb.AddHook(NewCircuitBreakerHook(m))
	return rdb, nil
}

// Ping verifies the connection; it doubles as the readiness check.
func Ping(ctx context.Context, rdb *goredis.Client) error {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
