// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultCookieName matches the cookie name used by express-session so
	// existing deployments keep their cookie.
	DefaultCookieName = "connect.sid"

	// DefaultTTL is how long an idle session is kept.
	DefaultTTL = 24 * time.Hour

	// DefaultMemoryStoreSize is the maximum number of sessions a MemoryStore
	// holds before evicting the least recently used.
	DefaultMemoryStoreSize = 10_000

	// DefaultRedisKeyPrefix is prepended to session ids in redis.
	DefaultRedisKeyPrefix = "sess:"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithTTL sets the session lifetime for: Manager, MemoryStore, RedisStore.
// Non-positive durations are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(o interface{}) {
		if ttl <= 0 {
			return
		}
		switch v := o.(type) {
		case *managerOptions:
			v.withTTL = ttl
		case *memoryOptions:
			v.withTTL = ttl
		case *redisOptions:
			v.withTTL = ttl
		}
	}
}

// WithLogger provides an optional logger for: Manager
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*managerOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithCookieName overrides DefaultCookieName for: Manager
func WithCookieName(name string) Option {
	return func(o interface{}) {
		if o, ok := o.(*managerOptions); ok && name != "" {
			o.withCookieName = name
		}
	}
}

// WithCookiePath overrides the default "/" cookie path for: Manager
func WithCookiePath(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*managerOptions); ok && path != "" {
			o.withCookiePath = path
		}
	}
}

// WithSecureCookie sets the cookie's Secure attribute for: Manager
func WithSecureCookie(secure bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*managerOptions); ok {
			o.withSecure = secure
		}
	}
}

// WithSize sets the maximum number of sessions for: MemoryStore
func WithSize(size int) Option {
	return func(o interface{}) {
		if o, ok := o.(*memoryOptions); ok && size > 0 {
			o.withSize = size
		}
	}
}

// WithKeyPrefix overrides DefaultRedisKeyPrefix for: RedisStore
func WithKeyPrefix(prefix string) Option {
	return func(o interface{}) {
		if o, ok := o.(*redisOptions); ok {
			o.withKeyPrefix = prefix
		}
	}
}

// managerOptions is the set of available options for Manager functions
type managerOptions struct {
	withTTL        time.Duration
	withLogger     hclog.Logger
	withCookieName string
	withCookiePath string
	withSecure     bool
	withSameSite   http.SameSite
}

func managerDefaults() managerOptions {
	return managerOptions{
		withTTL:        DefaultTTL,
		withLogger:     hclog.NewNullLogger(),
		withCookieName: DefaultCookieName,
		withCookiePath: "/",
		withSameSite:   http.SameSiteLaxMode,
	}
}

func getManagerOpts(opt ...Option) managerOptions {
	opts := managerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// memoryOptions is the set of available options for MemoryStore functions
type memoryOptions struct {
	withTTL  time.Duration
	withSize int
}

func memoryDefaults() memoryOptions {
	return memoryOptions{
		withTTL:  DefaultTTL,
		withSize: DefaultMemoryStoreSize,
	}
}

func getMemoryOpts(opt ...Option) memoryOptions {
	opts := memoryDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// redisOptions is the set of available options for RedisStore functions
type redisOptions struct {
	withTTL       time.Duration
	withKeyPrefix string
}

func redisDefaults() redisOptions {
	return redisOptions{
		withTTL:       DefaultTTL,
		withKeyPrefix: DefaultRedisKeyPrefix,
	}
}

func getRedisOpts(opt ...Option) redisOptions {
	opts := redisDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
