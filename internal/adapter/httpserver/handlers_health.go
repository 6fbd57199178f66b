package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/todolists/internal/platform/version"
)

const (
	readinessCheckTimeout = 5 * time.Second
	healthSessionName     = "todolists-health"
	healthSessionKey      = "nonce"
)

// HealthCheck is a named health check function.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// SessionStoreCheck writes a throwaway session, reads it back through the
// cookie the store issued, then deletes it.
func SessionStoreCheck(store sessions.Store) HealthCheck {
	return HealthCheck{
		Name: "session_store",
		Check: func(ctx context.Context) error {
			return roundTripSession(ctx, store)
		},
	}
}

func roundTripSession(ctx context.Context, store sessions.Store) error {
	writeReq, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	session, err := store.New(writeReq, healthSessionName)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	nonce := uuid.NewString()
	session.Values[healthSessionKey] = nonce
	w := &headerWriter{header: make(http.Header)}
	if err := session.Save(writeReq, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	readReq, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for _, ck := range (&http.Response{Header: w.header}).Cookies() {
		readReq.AddCookie(ck)
	}
	loaded, err := store.New(readReq, healthSessionName)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if got, _ := loaded.Values[healthSessionKey].(string); got != nonce {
		return errors.New("session store did not return the saved value")
	}

	loaded.Options.MaxAge = -1
	if err := loaded.Save(readReq, w); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// headerWriter collects the Set-Cookie headers a store emits.
type headerWriter struct {
	header http.Header
}

func (w *headerWriter) Header() http.Header         { return w.header }
func (w *headerWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *headerWriter) WriteHeader(int)             {}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
}

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := s.clock.Since(s.startTime).Seconds()

	response := map[string]any{
		"status": "ok",
		"uptime": uptime,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}

	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessCheckTimeout)
	defer cancel()

	for _, hc := range s.healthChecks {
		err := hc.Check(ctx)
		if err == nil {
			continue
		}

		response := map[string]any{
			"status":       "unhealthy",
			"failed_check": hc.Name,
			"error":        err.Error(),
		}
		if err := c.JSON(http.StatusServiceUnavailable, response); err != nil {
			return fmt.Errorf("failed to send JSON response: %w", err)
		}
		return nil
	}

	if err := c.JSON(http.StatusOK, map[string]string{"status": "ready"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
