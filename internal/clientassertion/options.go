// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clientassertion

import "time"

// DefaultLifetime is how long an assertion is valid for.
const DefaultLifetime = 5 * time.Minute

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil {
			continue
		}
		o(opts)
	}
}

type signerOptions struct {
	withNowFunc  func() time.Time
	withIDFunc   func() (string, error)
	withLifetime time.Duration
}

func signerDefaults() signerOptions {
	return signerOptions{
		withNowFunc:  time.Now,
		withIDFunc:   generateID,
		withLifetime: DefaultLifetime,
	}
}

func getSignerOpts(opt ...Option) signerOptions {
	opts := signerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithNow provides an optional func for determining the current time.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*signerOptions); ok && now != nil {
			o.withNowFunc = now
		}
	}
}

// WithIDGenerator provides an optional func for generating "jti" values.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(o interface{}) {
		if o, ok := o.(*signerOptions); ok && gen != nil {
			o.withIDFunc = gen
		}
	}
}

// WithLifetime overrides DefaultLifetime.  Non-positive values are ignored.
func WithLifetime(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*signerOptions); ok && d > 0 {
			o.withLifetime = d
		}
	}
}
