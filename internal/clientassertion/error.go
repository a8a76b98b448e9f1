// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clientassertion

import "errors"

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrNilPrivateKey        = errors.New("nil private key")
	ErrPublicKey            = errors.New("key is public; a private key is required")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrCreatingSigner       = errors.New("unable to create jwt signer")
)
