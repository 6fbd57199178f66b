package redis

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	goredis "github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "todolists:session:"

	// defaultSessionTTL applies to browser-session cookies (MaxAge == 0),
	// which have no server-side expiry of their own.
	defaultSessionTTL = 24 * time.Hour
)

// SessionStore is a sessions.Store keeping values in Redis.
type SessionStore struct {
	rdb     *goredis.Client
	codecs  []securecookie.Codec
	Options *sessions.Options
}

var _ sessions.Store = (*SessionStore)(nil)

// NewSessionStore signs the session-id cookie with keyPairs, exactly as
// sessions.NewCookieStore does.
func NewSessionStore(rdb *goredis.Client, keyPairs ...[]byte) *SessionStore {
	return &SessionStore{
		rdb:    rdb,
		codecs: securecookie.CodecsFromPairs(keyPairs...),
		Options: &sessions.Options{
			Path:   "/",
			MaxAge: 86400 * 30,
		},
	}
}

// Get returns the session cached in the request registry, loading it on first use.
func (s *SessionStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie. A missing cookie, an
// expired key or unreadable stored data all yield a fresh session. A cookie
// that fails signature checks yields a fresh session and the securecookie
// error; a Redis failure yields a wrapped Redis error.
func (s *SessionStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, cookie.Value, &id, s.codecs...); err != nil {
		return session, err
	}

	found, err := s.load(r.Context(), id, session)
	if err != nil {
		return session, err
	}
	if found {
		session.ID = id
		session.IsNew = false
	}
	return session, nil
}

// Save writes the values with a TTL of Options.MaxAge and refreshes the cookie.
// A negative MaxAge deletes the stored values and expires the cookie.
func (s *SessionStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx := r.Context()

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.rdb.Del(ctx, sessionKey(session.ID)).Err(); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	data, err := encodeValues(session.Values)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, sessionKey(session.ID), data, sessionTTL(session.Options)).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *SessionStore) load(ctx context.Context, id string, session *sessions.Session) (bool, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}

	values, err := decodeValues(data)
	if err != nil {
		slog.WarnContext(ctx, "Discarding unreadable session data", "error", err)
		return false, nil
	}
	session.Values = values
	return true, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func sessionTTL(opts *sessions.Options) time.Duration {
	if opts.MaxAge <= 0 {
		return defaultSessionTTL
	}
	return time.Duration(opts.MaxAge) * time.Second
}

// Values are gob-encoded, the same wire format securecookie uses inside cookies.
func encodeValues(values map[any]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(values); err != nil {
		return nil, fmt.Errorf("failed to encode session values: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeValues(data []byte) (map[any]any, error) {
	values := make(map[any]any)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		return nil, fmt.Errorf("failed to decode session values: %w", err)
	}
	return values, nil
}
