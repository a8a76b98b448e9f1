// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/hashicorp/go-hclog"
)

// Manager loads sessions for requests and commits them to its Store before
// the response header is written.
type Manager struct {
	store  Store
	codec  *securecookie.SecureCookie
	opts   managerOptions
	logger hclog.Logger
}

// NewManager creates a Manager.  The secret signs the session id cookie.
//
// Supported options:
//   - WithTTL
//   - WithLogger
//   - WithCookieName
//   - WithCookiePath
//   - WithSecureCookie
func NewManager(store Store, secret string, opt ...Option) (*Manager, error) {
	const op = "session.NewManager"
	switch {
	case store == nil:
		return nil, fmt.Errorf("%s: store is nil: %w", op, ErrNilParameter)
	case secret == "":
		return nil, fmt.Errorf("%s: secret is empty: %w", op, ErrInvalidParameter)
	}
	opts := getManagerOpts(opt...)
	codec := securecookie.New([]byte(secret), nil)
	codec.MaxAge(int(opts.withTTL / time.Second))
	return &Manager{
		store:  store,
		codec:  codec,
		opts:   opts,
		logger: opts.withLogger,
	}, nil
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.opts.withCookieName
}

// Middleware attaches the request's session to its context and commits it
// when the handler writes its response.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, hadCookie, err := m.load(r)
		if err != nil {
			m.logger.Error("unable to create session", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		sw := &responseWriter{ResponseWriter: w}
		sw.commit = func() {
			if err := m.commit(w, r, s, hadCookie); err != nil {
				m.logger.Error("unable to save session", "error", err)
			}
		}
		next.ServeHTTP(sw, r.WithContext(NewContext(r.Context(), s)))
		sw.once.Do(sw.commit)
	})
}

// load resolves the request's session, falling back to a new uninitialized
// session for a missing, invalid or unknown cookie.
func (m *Manager) load(r *http.Request) (*Session, bool, error) {
	const op = "Manager.load"
	c, err := r.Cookie(m.opts.withCookieName)
	if err != nil {
		s, err := newSession()
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		return s, false, nil
	}
	var id string
	if err := m.codec.Decode(m.opts.withCookieName, c.Value, &id); err != nil {
		m.logger.Debug("ignoring invalid session cookie", "error", err)
	} else {
		rec, err := m.store.Get(r.Context(), id)
		switch {
		case err == nil:
			if rec.Values == nil {
				rec.Values = map[string]json.RawMessage{}
			}
			return &Session{id: id, record: rec}, true, nil
		case errors.Is(err, ErrNotFound):
			m.logger.Debug("unknown session", "id", id)
		default:
			m.logger.Warn("unable to load session", "id", id, "error", err)
		}
	}
	s, err := newSession()
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", op, err)
	}
	return s, true, nil
}

func (m *Manager) commit(w http.ResponseWriter, r *http.Request, s *Session, hadCookie bool) error {
	const op = "Manager.commit"
	ctx := context.WithoutCancel(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staleID != "" {
		if err := m.store.Delete(ctx, s.staleID); err != nil {
			return fmt.Errorf("%s: unable to delete regenerated session: %w", op, err)
		}
		s.staleID = ""
	}
	if s.destroyed {
		if !s.isNew {
			if err := m.store.Delete(ctx, s.id); err != nil {
				return fmt.Errorf("%s: unable to delete session: %w", op, err)
			}
		}
		if hadCookie {
			http.SetCookie(w, m.cookie("", -1))
		}
		return nil
	}
	if !s.modified {
		return nil
	}
	if err := m.store.Set(ctx, s.id, s.record); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.isNew = false
	s.modified = false

	encoded, err := m.codec.Encode(m.opts.withCookieName, s.id)
	if err != nil {
		return fmt.Errorf("%s: unable to encode session cookie: %w", op, err)
	}
	http.SetCookie(w, m.cookie(encoded, int(m.opts.withTTL/time.Second)))
	return nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     m.opts.withCookieName,
		Value:    value,
		Path:     m.opts.withCookiePath,
		MaxAge:   maxAge,
		Secure:   m.opts.withSecure,
		HttpOnly: true,
		SameSite: m.opts.withSameSite,
	}
	if maxAge > 0 {
		c.Expires = time.Now().Add(time.Duration(maxAge) * time.Second).UTC()
	}
	return c
}

// responseWriter commits the session before the header is written.
type responseWriter struct {
	http.ResponseWriter
	commit func()
	once   sync.Once
}

func (w *responseWriter) WriteHeader(code int) {
	w.once.Do(w.commit)
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.once.Do(w.commit)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) Flush() {
	w.once.Do(w.commit)
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap supports http.ResponseController
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
