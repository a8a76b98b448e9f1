// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import "maps"

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

// WithEnvironment replaces the process environment, which is handy for
// tests.
func WithEnvironment(environ map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loadOptions); ok {
			o.withEnvironment = maps.Clone(environ)
		}
	}
}

// WithEnvFile reads variables from a dotenv file.  A missing file is
// ignored.
func WithEnvFile(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loadOptions); ok {
			o.withEnvFile = path
		}
	}
}

// loadOptions is the set of available options for Load
type loadOptions struct {
	withEnvironment map[string]string
	withEnvFile     string
}

func loadDefaults() loadOptions {
	return loadOptions{}
}

func getLoadOpts(opt ...Option) loadOptions {
	opts := loadDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
