package redis

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/todolists/internal/adapter/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Connects(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	err := client.Ping(ctx).Err()
	require.NoError(t, err)
}

func TestNewClient_RecordsCommands(t *testing.T) {
	// Reuse the container bootstrap, then build a second client with a
	// registry this test can inspect.
	base := setupTestClient(t)
	ctx := context.Background()

	m := metrics.NewRedisMetrics(prometheus.NewRegistry())
	opts := base.Options()
	client, err := NewClient("redis://"+opts.Addr, m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, Ping(ctx, client))
	require.NoError(t, client.Set(ctx, "todolists:test", "v", 0).Err())

	assert.InDelta(t, 1, testutil.ToFloat64(m.OpsTotal.WithLabelValues("ping", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.OpsTotal.WithLabelValues("set", "success")), 0)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("not-a-redis-url", nil)
	assert.Error(t, err)
}
