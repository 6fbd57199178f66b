package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/todolists/internal/adapter/metrics"
	"github.com/pscheid92/todolists/internal/platform/config"
	apperrors "github.com/pscheid92/todolists/internal/platform/errors"
	"github.com/pscheid92/todolists/web"
)

var pages = []string{"lists.html", "new_list.html", "edit_list.html", "list.html"}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	sessionStore sessions.Store
	templates    map[string]*template.Template

	httpMetrics    *metrics.HTTPMetrics
	listMetrics    *metrics.ListMetrics
	metricsHandler http.Handler

	healthChecks []HealthCheck
	clock        clockwork.Clock
	startTime    time.Time
}

// NewServer wires the router. sessionStore decides where session values live
// (signed cookie or Redis); reg may be nil to run without metrics.
func NewServer(cfg *config.Config, sessionStore sessions.Store, reg *prometheus.Registry, healthChecks []HealthCheck, clock clockwork.Clock) (*Server, error) {
	templates, err := parseTemplates(web.TemplateFiles)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		sessionStore: sessionStore,
		templates:    templates,
		healthChecks: healthChecks,
		clock:        clock,
		startTime:    clock.Now(),
	}

	if reg != nil {
		srv.httpMetrics = metrics.NewHTTPMetrics(reg)
		srv.listMetrics = metrics.NewListMetrics(reg)
		srv.metricsHandler = metrics.Handler(reg)
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router for in-process callers.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// SessionOptions are the cookie settings shared by every session store.
func SessionOptions(cfg *config.Config) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
}

// parseTemplates pairs each page with the shared layout; pages all define
// "content", so each needs its own template set.
func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.ParseFS(fsys, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}
	return templates, nil
}

// renderTemplate consumes the flash slots, persists the session and writes
// the page. The page is rendered into a buffer first so a template failure
// never leaves a half-written response.
func (s *Server) renderTemplate(c echo.Context, st *requestState, page string, data map[string]any) error {
	tmpl, ok := s.templates[page]
	if !ok {
		return apperrors.InternalError("unknown template", nil).WithField("template", page)
	}

	if data == nil {
		data = make(map[string]any)
	}
	data["Error"] = st.popFlash(sessionKeyError)
	data["Success"] = st.popFlash(sessionKeySuccess)
	data["CSRFToken"], _ = c.Get(csrfContextKey).(string)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return apperrors.InternalError("failed to render page", err).WithField("template", page)
	}

	if err := s.saveState(c, st); err != nil {
		return err
	}

	if err := c.HTMLBlob(http.StatusOK, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

// redirect persists the session and redirects: 303 after a POST so the
// browser follows with a GET, 302 otherwise.
func (s *Server) redirect(c echo.Context, st *requestState, location string) error {
	st.dirty = true
	if err := s.saveState(c, st); err != nil {
		return err
	}

	status := http.StatusFound
	if c.Request().Method != http.MethodGet {
		status = http.StatusSeeOther
	}
	if err := c.Redirect(status, location); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}
