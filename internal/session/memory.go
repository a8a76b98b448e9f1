// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps sessions in an expiring LRU inside the process.  Sessions
// are lost on restart and aren't shared between processes.
type MemoryStore struct {
	cache *expirable.LRU[string, *Record]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore.
//
// Supported options:
//   - WithTTL
//   - WithSize
func NewMemoryStore(opt ...Option) *MemoryStore {
	opts := getMemoryOpts(opt...)
	return &MemoryStore{
		cache: expirable.NewLRU[string, *Record](opts.withSize, nil, opts.withTTL),
	}
}

// Get returns a copy of the record for id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	const op = "MemoryStore.Get"
	r, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return r.Clone(), nil
}

// Set stores a copy of the record.
func (s *MemoryStore) Set(_ context.Context, id string, r *Record) error {
	const op = "MemoryStore.Set"
	switch {
	case id == "":
		return fmt.Errorf("%s: id is empty: %w", op, ErrInvalidParameter)
	case r == nil:
		return fmt.Errorf("%s: record is nil: %w", op, ErrNilParameter)
	}
	s.cache.Add(id, r.Clone())
	return nil
}

// Delete removes the record for id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.cache.Remove(id)
	return nil
}

// Len returns the number of unexpired sessions.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
