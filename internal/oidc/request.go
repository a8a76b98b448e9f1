// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Request basically represents one OIDC authentication flow for a user. It
// contains the data needed to uniquely represent that one-time flow across
// the multiple interactions needed to complete the OIDC flow the user is
// attempting.  State is passed throughout the OIDC interactions to uniquely
// identify the flow. The State and Nonce cannot be equal, and will be used
// during the OIDC flow to prevent CSRF and replay attacks (see the oidc spec
// for specifics).
//
// Requests are JSON encoded so they can be stored in a server side session
// between the redirect to the provider and the callback.
type Request struct {
	// State is a unique identifier and an opaque value used to maintain
	// state between the oidc request and the callback.
	State string `json:"state"`

	// Nonce is a unique nonce and a string value used to associate a Client
	// session with an ID Token, and to mitigate replay attacks.
	Nonce string `json:"nonce"`

	// RedirectURL where the provider sends the authentication response.
	RedirectURL string `json:"redirect_url"`

	// Scopes is a list of additional scopes to request.  The "openid" scope
	// is always requested.
	Scopes []string `json:"scopes,omitempty"`

	// UILocales is an optional list of BCP47 tags for the provider's UI.
	UILocales []string `json:"ui_locales,omitempty"`

	// Expiration of the request.
	Expiration time.Time `json:"expiration"`
}

// NewRequest creates a new Request.
//
// Supported options:
//   - WithNow
//   - WithScopes
//   - WithUILocales
func NewRequest(expireIn time.Duration, redirectURL string, opt ...Option) (*Request, error) {
	const op = "oidc.NewRequest"
	if expireIn <= 0 {
		return nil, fmt.Errorf("%s: expireIn not greater than zero: %w", op, ErrInvalidParameter)
	}
	if redirectURL == "" {
		return nil, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	opts := getReqOpts(opt...)
	nonce, err := NewID("n")
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's nonce: %w", op, err)
	}
	state, err := NewID("st")
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's state: %w", op, err)
	}
	r := &Request{
		State:       state,
		Nonce:       nonce,
		RedirectURL: redirectURL,
		Scopes:      opts.withScopes,
		Expiration:  opts.withNowFunc().Add(expireIn),
	}
	for _, tag := range opts.withUILocales {
		r.UILocales = append(r.UILocales, tag.String())
	}
	return r, nil
}

// DefaultRequestExpirySkew defines a default time skew when checking a
// Request's expiration.
const DefaultRequestExpirySkew = 1 * time.Second

// IsExpired returns true if the request has expired, allowing for the
// DefaultRequestExpirySkew.
func (r *Request) IsExpired() bool {
	return r.Expiration.Before(time.Now().Add(DefaultRequestExpirySkew))
}

// reqOptions is the set of available options for Request functions
type reqOptions struct {
	withNowFunc   func() time.Time
	withScopes    []string
	withUILocales []language.Tag
}

// reqDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func reqDefaults() reqOptions {
	return reqOptions{
		withNowFunc: time.Now,
	}
}

// getReqOpts gets the request defaults and applies the opt overrides passed
// in
func getReqOpts(opt ...Option) reqOptions {
	opts := reqDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithUILocales optionally specifies End-User's preferred languages via
// the "ui_locales" parameter, in order of preference.  Option is valid for:
// Request
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#AuthRequest
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withUILocales = locales
		}
	}
}
