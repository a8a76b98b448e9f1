// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/language"
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

// WithLogger provides an optional logger for: Authenticator, Bootstrap,
// OIDCStrategy
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *authenticatorOptions:
			v.withLogger = l
		case *bootstrapOptions:
			v.withLogger = l
		case *oidcStrategyOptions:
			v.withLogger = l
		}
	}
}

// WithLoginPath sets where RequireLogin sends anonymous users, for:
// Authenticator
func WithLoginPath(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*authenticatorOptions); ok && path != "" {
			o.withLoginPath = path
		}
	}
}

// WithSerializer overrides the identity serializer for: Authenticator
func WithSerializer(fn SerializeFunc) Option {
	return func(o interface{}) {
		if o, ok := o.(*authenticatorOptions); ok && fn != nil {
			o.withSerializer = fn
		}
	}
}

// WithDeserializer overrides the identity deserializer for: Authenticator
func WithDeserializer(fn DeserializeFunc) Option {
	return func(o interface{}) {
		if o, ok := o.(*authenticatorOptions); ok && fn != nil {
			o.withDeserializer = fn
		}
	}
}

// WithOutcomeObserver is called with the outcome of every Authenticate, for:
// Authenticator
func WithOutcomeObserver(fn func(strategy string, outcome Outcome)) Option {
	return func(o interface{}) {
		if o, ok := o.(*authenticatorOptions); ok {
			o.withOutcomeObserver = fn
		}
	}
}

// WithStrategyName overrides the name a Bootstrap registers its strategy
// under, for: Bootstrap
func WithStrategyName(name string) Option {
	return func(o interface{}) {
		if o, ok := o.(*bootstrapOptions); ok && name != "" {
			o.withStrategyName = name
		}
	}
}

// WithDiscoveryTimeout bounds issuer discovery, for: Bootstrap.  Zero means no
// timeout.
func WithDiscoveryTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*bootstrapOptions); ok && d >= 0 {
			o.withDiscoveryTimeout = d
		}
	}
}

// WithStateObserver is called on every state change, for: Bootstrap
func WithStateObserver(fn func(State)) Option {
	return func(o interface{}) {
		if o, ok := o.(*bootstrapOptions); ok {
			o.withStateObserver = fn
		}
	}
}

// WithScopes sets the scopes to request, for: OIDCStrategy
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*oidcStrategyOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithUILocales sets the ui_locales to request, for: OIDCStrategy
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if o, ok := o.(*oidcStrategyOptions); ok {
			o.withUILocales = locales
		}
	}
}

// WithUserInfo controls whether the userinfo endpoint is called after the
// code exchange, for: OIDCStrategy.  When disabled, the id_token claims are
// used to build the principal.
func WithUserInfo(enabled bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*oidcStrategyOptions); ok {
			o.withUserInfo = enabled
		}
	}
}

// WithRequestTTL sets how long a login may take, for: OIDCStrategy
func WithRequestTTL(ttl time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*oidcStrategyOptions); ok && ttl > 0 {
			o.withRequestTTL = ttl
		}
	}
}

// WithVerify overrides how the token set and userinfo become a principal,
// for: OIDCStrategy
func WithVerify(fn VerifyFunc) Option {
	return func(o interface{}) {
		if o, ok := o.(*oidcStrategyOptions); ok {
			o.withVerify = fn
		}
	}
}

type authenticatorOptions struct {
	withLogger          hclog.Logger
	withLoginPath       string
	withSerializer      SerializeFunc
	withDeserializer    DeserializeFunc
	withOutcomeObserver func(string, Outcome)
}

func authenticatorDefaults() authenticatorOptions {
	return authenticatorOptions{
		withLogger:       hclog.NewNullLogger(),
		withLoginPath:    "/login",
		withSerializer:   IdentitySerializer,
		withDeserializer: IdentityDeserializer,
	}
}

func getAuthenticatorOpts(opt ...Option) authenticatorOptions {
	opts := authenticatorDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

type bootstrapOptions struct {
	withLogger           hclog.Logger
	withStrategyName     string
	withDiscoveryTimeout time.Duration
	withStateObserver    func(State)
}

func bootstrapDefaults() bootstrapOptions {
	return bootstrapOptions{
		withLogger:       hclog.NewNullLogger(),
		withStrategyName: OIDCStrategyName,
	}
}

func getBootstrapOpts(opt ...Option) bootstrapOptions {
	opts := bootstrapDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

type oidcStrategyOptions struct {
	withLogger     hclog.Logger
	withScopes     []string
	withUILocales  []language.Tag
	withUserInfo   bool
	withRequestTTL time.Duration
	withVerify     VerifyFunc
}

func oidcStrategyDefaults() oidcStrategyOptions {
	return oidcStrategyOptions{
		withLogger:     hclog.NewNullLogger(),
		withScopes:     []string{"openid"},
		withUserInfo:   true,
		withRequestTTL: DefaultRequestTTL,
	}
}

func getOIDCStrategyOpts(opt ...Option) oidcStrategyOptions {
	opts := oidcStrategyDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
