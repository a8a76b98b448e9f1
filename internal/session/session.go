// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-uuid"
)

// Session is one browser's server side state for the current request.
// Changes are written to the Store when the response is committed.
type Session struct {
	mu        sync.Mutex
	id        string
	record    *Record
	isNew     bool
	modified  bool
	destroyed bool
	// staleID is deleted from the store on commit after a Regenerate
	staleID string
}

func newSession() (*Session, error) {
	const op = "session.newSession"
	id, err := newSessionID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Session{
		id: id,
		record: &Record{
			Values:    map[string]json.RawMessage{},
			CreatedAt: time.Now().UTC(),
		},
		isNew: true,
	}, nil
}

func newSessionID() (string, error) {
	const op = "session.newSessionID"
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate session id: %w", op, err)
	}
	return id, nil
}

// ID returns the session's id
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// IsNew reports whether the session hasn't been saved yet.
func (s *Session) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isNew
}

// Get decodes the value stored under key into v and reports whether the key
// was present.
func (s *Session) Get(key string, v any) (bool, error) {
	const op = "Session.Get"
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.record.Values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("%s: unable to decode %q: %w", op, key, err)
	}
	return true, nil
}

// Has reports whether key is set.
func (s *Session) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.record.Values[key]
	return ok
}

// Set JSON encodes v under key and marks the session modified.
func (s *Session) Set(key string, v any) error {
	const op = "Session.Set"
	if key == "" {
		return fmt.Errorf("%s: key is empty: %w", op, ErrInvalidParameter)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: unable to encode %q: %w", op, key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return fmt.Errorf("%s: %w", op, ErrDestroyed)
	}
	s.record.Values[key] = raw
	s.modified = true
	return nil
}

// Delete removes key, marking the session modified if it was present.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.record.Values[key]; ok {
		delete(s.record.Values, key)
		s.modified = true
	}
}

// Regenerate replaces the session with a new, empty one under a new id.  The
// old record is deleted when the response is committed.
func (s *Session) Regenerate() error {
	const op = "Session.Regenerate"
	id, err := newSessionID()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return fmt.Errorf("%s: %w", op, ErrDestroyed)
	}
	if !s.isNew && s.staleID == "" {
		s.staleID = s.id
	}
	s.id = id
	s.record = &Record{
		Values:    map[string]json.RawMessage{},
		CreatedAt: time.Now().UTC(),
	}
	s.isNew = true
	s.modified = true
	return nil
}

// Destroy removes the session from the store when the response is committed
// and clears the cookie.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.record.Values = map[string]json.RawMessage{}
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request's session, which the Manager's middleware
// attaches.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
