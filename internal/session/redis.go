// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default timeouts for redis operations.
const (
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
)

// RedisStore keeps sessions in redis as JSON with a TTL, so sessions survive
// restarts and can be shared between processes.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore with a pre-configured client.
//
// Supported options:
//   - WithTTL
//   - WithKeyPrefix
func NewRedisStore(client redis.UniversalClient, opt ...Option) (*RedisStore, error) {
	const op = "session.NewRedisStore"
	if client == nil {
		return nil, fmt.Errorf("%s: redis client is nil: %w", op, ErrNilParameter)
	}
	opts := getRedisOpts(opt...)
	return &RedisStore{
		client:    client,
		keyPrefix: opts.withKeyPrefix,
		ttl:       opts.withTTL,
	}, nil
}

// DialRedisStore connects to the redis server at addr and verifies the
// connection before returning a RedisStore.
func DialRedisStore(ctx context.Context, addr string, opt ...Option) (*RedisStore, error) {
	const op = "session.DialRedisStore"
	if addr == "" {
		return nil, fmt.Errorf("%s: address is empty: %w", op, ErrInvalidParameter)
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  DefaultRedisDialTimeout,
		ReadTimeout:  DefaultRedisReadTimeout,
		WriteTimeout: DefaultRedisWriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		// Close the client to prevent resource leak
		_ = client.Close()
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}
	return NewRedisStore(client, opt...)
}

// Get returns the record for id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	const op = "RedisStore.Get"
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%s: unable to decode record: %w: %w", op, ErrStore, err)
	}
	return &r, nil
}

// Set writes the record with the store's TTL.
func (s *RedisStore) Set(ctx context.Context, id string, r *Record) error {
	const op = "RedisStore.Set"
	switch {
	case id == "":
		return fmt.Errorf("%s: id is empty: %w", op, ErrInvalidParameter)
	case r == nil:
		return fmt.Errorf("%s: record is nil: %w", op, ErrNilParameter)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%s: unable to encode record: %w", op, err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
	return nil
}

// Delete removes the record for id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	const op = "RedisStore.Delete"
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	return s.keyPrefix + id
}
