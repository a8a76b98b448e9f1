// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrUnknownStrategy  = errors.New("unknown authentication strategy")
	ErrNoSession        = errors.New("no session; is the session middleware installed?")
	ErrInvalidPrincipal = errors.New("invalid principal")
	ErrKeyStore         = errors.New("unable to load key store")
	ErrDiscovery        = errors.New("unable to discover issuer")
	ErrStrategy         = errors.New("unable to create strategy")
	ErrBootstrapStarted = errors.New("bootstrap already started")
	ErrMissingRequest   = errors.New("authorization request not found in session")
	ErrProviderError    = errors.New("provider returned an error")
	ErrUserInfoDisabled = errors.New("issuer has no userinfo endpoint")
)
