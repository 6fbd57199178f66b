package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/todolists/internal/app"
	"github.com/pscheid92/todolists/internal/domain"
	"github.com/pscheid92/todolists/internal/platform/config"
	apperrors "github.com/pscheid92/todolists/internal/platform/errors"
)

const (
	sessionName       = "todolists-session"
	sessionKeyLists   = "lists"
	sessionKeyError   = "flash_error"
	sessionKeySuccess = "flash_success"

	contextKeyState = "requestState"
	contextKeyList  = "list"

	asyncHeader = "X-Requested-With"
	asyncValue  = "XMLHttpRequest"
)

// requestState is the per-request view of the caller's session: the raw
// gorilla session for flashes, plus the decoded collection and the storage
// operating on it.
type requestState struct {
	session *sessions.Session
	lists   *domain.Collection
	storage *app.SessionStorage
	dirty   bool
}

func (st *requestState) setFlash(key, message string) {
	st.session.Values[key] = message
	st.dirty = true
}

// popFlash returns the slot's message and clears it.
func (st *requestState) popFlash(key string) string {
	msg, ok := st.session.Values[key].(string)
	if !ok {
		return ""
	}
	delete(st.session.Values, key)
	st.dirty = true
	return msg
}

// NewFileSessionStore keeps session values in files under dir (the OS temp
// dir when empty); the cookie carries only the signed session id. Values are
// not length-capped, unlike a cookie.
func NewFileSessionStore(dir string, cfg *config.Config) *sessions.FilesystemStore {
	store := sessions.NewFilesystemStore(dir, []byte(cfg.SessionSecret))
	store.Options = SessionOptions(cfg)
	store.MaxAge(store.Options.MaxAge)
	store.MaxLength(0)
	return store
}

// loadSession decodes the caller's session before the handler runs. A cookie
// that fails verification starts a fresh session; a store that cannot be
// reached fails the request with 503.
func (s *Server) loadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		session, err := s.sessionStore.Get(c.Request(), sessionName)
		switch {
		case err == nil:
		case session != nil && isDecodeError(err):
			slog.WarnContext(ctx, "Discarding unverifiable session cookie", "error", err)
		case session != nil && errors.Is(err, fs.ErrNotExist):
			// The cookie outlived its session file.
			slog.InfoContext(ctx, "Session data gone, starting fresh", "error", err)
		default:
			return apperrors.UnavailableError("session storage unavailable", err)
		}

		lists, err := decodeCollection(session.Values[sessionKeyLists])
		if err != nil {
			slog.WarnContext(ctx, "Discarding unreadable list data", "error", err)
			lists = &domain.Collection{}
		}

		c.Set(contextKeyState, &requestState{
			session: session,
			lists:   lists,
			storage: app.NewSessionStorage(lists),
		})
		return next(c)
	}
}

func stateFrom(c echo.Context) (*requestState, error) {
	st, ok := c.Get(contextKeyState).(*requestState)
	if !ok {
		return nil, apperrors.InternalError("session not loaded", nil)
	}
	return st, nil
}

// saveState writes the collection back into the session and persists it.
// Requests that changed nothing skip the write.
func (s *Server) saveState(c echo.Context, st *requestState) error {
	if !st.dirty {
		return nil
	}

	data, err := json.Marshal(st.lists)
	if err != nil {
		return apperrors.InternalError("failed to encode lists", err)
	}
	st.session.Values[sessionKeyLists] = string(data)

	if err := st.session.Save(c.Request(), c.Response()); err != nil {
		var cookieErr securecookie.Error
		if errors.As(err, &cookieErr) {
			return apperrors.InternalError("failed to encode session", err)
		}
		return apperrors.UnavailableError("failed to save session", err)
	}
	st.dirty = false
	return nil
}

func isDecodeError(err error) bool {
	var cookieErr securecookie.Error
	return errors.As(err, &cookieErr) && cookieErr.IsDecode()
}

func decodeCollection(raw any) (*domain.Collection, error) {
	lists := &domain.Collection{}
	s, ok := raw.(string)
	if !ok || s == "" {
		return lists, nil
	}
	if err := json.Unmarshal([]byte(s), lists); err != nil {
		return nil, fmt.Errorf("failed to decode lists: %w", err)
	}
	return lists, nil
}

func isAsync(c echo.Context) bool {
	return c.Request().Header.Get(asyncHeader) == asyncValue
}

// parseID accepts canonical ids only: decimal digits without sign or leading
// zero, so "/lists/+1" and "/lists/01" do not alias "/lists/1".
func parseID(raw string) (int, bool) {
	if raw == "" || raw[0] < '1' || raw[0] > '9' {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}
