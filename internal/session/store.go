// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"encoding/json"
	"time"
)

// Record is the persisted form of a session.
type Record struct {
	Values    map[string]json.RawMessage `json:"values"`
	CreatedAt time.Time                  `json:"created_at"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		Values:    make(map[string]json.RawMessage, len(r.Values)),
		CreatedAt: r.CreatedAt,
	}
	for k, v := range r.Values {
		c.Values[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

// Store persists session records.  Implementations must be safe for
// concurrent use and expire records on their own.
type Store interface {
	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Set creates or replaces the record for id, resetting its expiry.
	Set(ctx context.Context, id string, r *Record) error

	// Delete removes the record for id.  Deleting an unknown id is not an
	// error.
	Delete(ctx context.Context, id string) error
}
