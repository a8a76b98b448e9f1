// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"github.com/hashicorp/cap-oidc-login/internal/metrics"
	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultBodyLimit is the largest request body the body parser accepts.
	DefaultBodyLimit = 100 << 10

	// DefaultCallbackPath is the path of the default redirect URL.
	DefaultCallbackPath = "/openid-connect-login"

	// DefaultTitle is shown in every page's title.
	DefaultTitle = "OIDC Login"
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

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithMetrics enables request metrics and the /metrics route.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withMetrics = m
		}
	}
}

// WithPublicDir serves static files from dir.  An empty dir disables static
// files.
func WithPublicDir(dir string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withPublicDir = dir
		}
	}
}

// WithDevelopment shows error details on the error page.
func WithDevelopment(dev bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withDevelopment = dev
		}
	}
}

// WithBodyLimit overrides DefaultBodyLimit.
func WithBodyLimit(n int64) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && n > 0 {
			o.withBodyLimit = n
		}
	}
}

// WithCallbackPath is where the provider redirects back to; it must be the
// path of the strategy's redirect URL.
func WithCallbackPath(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && path != "" {
			o.withCallbackPath = path
		}
	}
}

// WithTitle overrides DefaultTitle.
func WithTitle(title string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && title != "" {
			o.withTitle = title
		}
	}
}

// serverOptions is the set of available options for Server functions
type serverOptions struct {
	withLogger       hclog.Logger
	withMetrics      *metrics.Metrics
	withPublicDir    string
	withDevelopment  bool
	withBodyLimit    int64
	withCallbackPath string
	withTitle        string
}

// serverDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func serverDefaults() serverOptions {
	return serverOptions{
		withLogger:       hclog.NewNullLogger(),
		withBodyLimit:    DefaultBodyLimit,
		withCallbackPath: DefaultCallbackPath,
		withTitle:        DefaultTitle,
	}
}

// getServerOpts gets the server defaults and applies the opt overrides passed
// in
func getServerOpts(opt ...Option) serverOptions {
	opts := serverDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
