package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/todolists/internal/adapter/httpserver"
	"github.com/pscheid92/todolists/internal/adapter/metrics"
	"github.com/pscheid92/todolists/internal/adapter/redis"
	"github.com/pscheid92/todolists/internal/platform/config"
	"github.com/pscheid92/todolists/internal/platform/logging"
	"github.com/pscheid92/todolists/internal/platform/retry"
	"github.com/pscheid92/todolists/internal/platform/version"
	goredis "github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// redisConnectPolicy covers a Redis that comes up a little after the app,
// as it does under docker compose.
var redisConnectPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

func runGracefulShutdown(srv *httpserver.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) *goredis.Client {
	client, err := redis.NewClient(cfg.RedisURL, metrics.NewRedisMetrics(reg))
	if err != nil {
		slog.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}

	ping := func(ctx context.Context) error { return redis.Ping(ctx, client) }
	if err := retry.Do(ctx, redisConnectPolicy, nil, ping); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// setupSessionStore keeps sessions in Redis when configured, otherwise in
// files on local disk. Either way the cookie only carries the signed id.
func setupSessionStore(cfg *config.Config, client *goredis.Client) sessions.Store {
	if client == nil {
		if cfg.SessionDir != "" {
			if err := os.MkdirAll(cfg.SessionDir, 0o700); err != nil {
				slog.Error("Failed to create session directory", "dir", cfg.SessionDir, "error", err)
				os.Exit(1)
			}
		}
		slog.Info("Sessions stored on disk", "dir", cfg.SessionDir)
		return httpserver.NewFileSessionStore(cfg.SessionDir, cfg)
	}

	store := redis.NewSessionStore(client, []byte(cfg.SessionSecret))
	store.Options = httpserver.SessionOptions(cfg)
	slog.Info("Sessions stored in Redis")
	return store
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	v := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", v.Version, "commit", v.Commit)

	reg := metrics.NewRegistry()

	var (
		redisClient  *goredis.Client
		healthChecks []httpserver.HealthCheck
	)
	if cfg.RedisURL != "" {
		redisClient = setupRedis(context.Background(), cfg, reg)
		defer func() { _ = redisClient.Close() }()

		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redis.Ping(ctx, redisClient) },
		})
	}

	sessionStore := setupSessionStore(cfg, redisClient)
	healthChecks = append(healthChecks, httpserver.SessionStoreCheck(sessionStore))

	srv, err := httpserver.NewServer(cfg, sessionStore, reg, healthChecks, clock)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
