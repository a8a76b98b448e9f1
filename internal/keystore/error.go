// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package keystore

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidKeySet    = errors.New("invalid JWK set")
	ErrInvalidKey       = errors.New("invalid JWK")
	ErrNoSigningKey     = errors.New("no private signing key in JWK set")
	ErrKeyFileExists    = errors.New("key file already exists")
)
