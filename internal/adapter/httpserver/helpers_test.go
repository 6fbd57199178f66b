package httpserver

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/todolists/internal/domain"
	"github.com/pscheid92/todolists/internal/platform/config"
	"github.com/pscheid92/todolists/web"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "test-secret-key-32-bytes-long!!!"

func newTestServer(t *testing.T, opts ...func(*Server)) *Server {
	t.Helper()

	templates, err := parseTemplates(web.TemplateFiles)
	require.NoError(t, err)

	cfg := &config.Config{
		AppEnv:         "development",
		SessionSecret:  testSessionSecret,
		SessionMaxAge:  time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}

	clock := clockwork.NewFakeClock()
	srv := &Server{
		echo:         echo.New(),
		config:       cfg,
		sessionStore: NewFileSessionStore(t.TempDir(), cfg),
		templates:    templates,
		clock:        clock,
		startTime:    clock.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withCookieSessionStore(secret string) func(*Server) {
	return func(s *Server) {
		store := sessions.NewCookieStore([]byte(secret))
		store.Options = SessionOptions(s.config)
		s.sessionStore = store
	}
}

func withFileSessionStore(dir string) func(*Server) {
	return func(s *Server) {
		s.sessionStore = NewFileSessionStore(dir, s.config)
	}
}

func withSessionStore(store sessions.Store) func(*Server) {
	return func(s *Server) {
		s.sessionStore = store
	}
}

func withRateLimit(rps float64, burst int) func(*Server) {
	return func(s *Server) {
		s.config.RateLimitRPS = rps
		s.config.RateLimitBurst = burst
	}
}

// testBrowser replays cookies between requests the way a browser would.
type testBrowser struct {
	t       *testing.T
	srv     *Server
	cookies map[string]*http.Cookie
}

func newTestBrowser(t *testing.T, srv *Server) *testBrowser {
	return &testBrowser{t: t, srv: srv, cookies: make(map[string]*http.Cookie)}
}

func (b *testBrowser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()

	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	b.srv.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(b.cookies, ck.Name)
			continue
		}
		b.cookies[ck.Name] = ck
	}
	return rec
}

func (b *testBrowser) get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// post submits a form the way the rendered page does, token included.
func (b *testBrowser) post(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	withToken := url.Values{csrfFormField: {b.csrfToken()}}
	for k, v := range form {
		withToken[k] = v
	}
	return b.do(newFormRequest(path, withToken))
}

func (b *testBrowser) postWithoutToken(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.do(newFormRequest(path, form))
}

// postAsync mirrors application.js: token in a header, no form body.
func (b *testBrowser) postAsync(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	req := newFormRequest(path, nil)
	req.Header.Set(asyncHeader, asyncValue)
	req.Header.Set(csrfHeader, b.csrfToken())
	return b.do(req)
}

// csrfToken loads a page first if the browser has no token cookie yet.
func (b *testBrowser) csrfToken() string {
	b.t.Helper()
	if _, ok := b.cookies[csrfCookieName]; !ok {
		b.get("/lists/new")
	}
	ck, ok := b.cookies[csrfCookieName]
	require.True(b.t, ok, "no CSRF cookie issued")
	return ck.Value
}

// collection decodes the lists currently held in the browser's cookie.
func (b *testBrowser) collection() *domain.Collection {
	b.t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}
	session, err := b.srv.sessionStore.Get(req, sessionName)
	require.NoError(b.t, err)

	lists, err := decodeCollection(session.Values[sessionKeyLists])
	require.NoError(b.t, err)
	return lists
}

func newFormRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func listNamed(name string) url.Values {
	return url.Values{"list_name": {name}}
}

func todoNamed(name string) url.Values {
	return url.Values{"todo": {name}}
}
