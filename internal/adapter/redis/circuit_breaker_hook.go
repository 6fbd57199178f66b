package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/pscheid92/todolists/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const (
	breakerMinRequests  = 5
	breakerFailureRatio = 0.6
	breakerInterval     = 10 * time.Second
	breakerOpenTimeout  = 30 * time.Second
)

// ErrCircuitOpen is returned for commands rejected while Redis is considered down.
var ErrCircuitOpen = errors.New("redis circuit breaker open")

// CircuitBreakerHook fails Redis commands fast once a sustained failure rate is
// observed, so requests do not queue behind dial and read timeouts.
//
// Trips at 60% failures over at least 5 requests in a 10s window, stays open
// for 30s, then lets one trial request through.
type CircuitBreakerHook struct {
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.RedisMetrics
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

func NewCircuitBreakerHook(m *metrics.RedisMetrics) *CircuitBreakerHook {
	h := &CircuitBreakerHook{metrics: m}
	h.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= breakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, goredis.Nil)
		},
		OnStateChange: h.onStateChange,
	})
	return h
}

func (h *CircuitBreakerHook) onStateChange(_ string, from, to gobreaker.State) {
	slog.Warn("Circuit breaker state changed", "component", "redis", "from", from.String(), "to", to.String())
	if h.metrics == nil {
		return
	}
	h.metrics.CircuitBreakerTrips.WithLabelValues(to.String()).Inc()
	h.metrics.CircuitBreakerState.Set(stateToFloat(to))
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := h.cb.Execute(func() (any, error) {
			return next(ctx, network, addr)
		})
		if err != nil {
			return nil, h.wrap(err)
		}
		return conn.(net.Conn), nil
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		_, err := h.cb.Execute(func() (any, error) {
			return nil, next(ctx, cmd)
		})
		return h.wrap(err)
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		_, err := h.cb.Execute(func() (any, error) {
			return nil, next(ctx, cmds)
		})
		return h.wrap(err)
	}
}

// wrap leaves command errors untouched (callers compare against goredis.Nil)
// and maps breaker rejections onto ErrCircuitOpen.
func (h *CircuitBreakerHook) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}

// State returns the current breaker state (for tests and monitoring).
func (h *CircuitBreakerHook) State() gobreaker.State {
	return h.cb.State()
}

func (h *CircuitBreakerHook) Counts() gobreaker.Counts {
	return h.cb.Counts()
}
