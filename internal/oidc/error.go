// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
)

var (
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrNilParameter              = errors.New("nil parameter")
	ErrInvalidCACert             = errors.New("invalid CA certificate")
	ErrInvalidIssuer             = errors.New("invalid issuer")
	ErrIDGeneratorFailed         = errors.New("id generation failed")
	ErrExpiredRequest            = errors.New("request is expired")
	ErrResponseStateInvalid      = errors.New("invalid response state")
	ErrMissingIDToken            = errors.New("id_token is missing")
	ErrIDTokenVerificationFailed = errors.New("id_token verification failed")
	ErrInvalidAudience           = errors.New("invalid audience")
	ErrInvalidNonce              = errors.New("invalid nonce")
	ErrNotFound                  = errors.New("not found")
	ErrUnsupportedAuthMethod     = errors.New("unsupported token endpoint auth method")
	ErrUnsupportedAlg            = errors.New("unsupported signing algorithm")
	ErrExchangeFailed            = errors.New("code exchange failed")
	ErrUserInfoFailed            = errors.New("user info failed")
	ErrUserInfoSubjectMismatch   = errors.New("user info subject does not match id_token subject")
)
