// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package keystore holds the relying party's private JSON Web Keys.  A
// KeyStore is parsed once from a JWK Set file and is immutable afterwards; its
// signing key is used to sign private_key_jwt client assertions, and its
// public keys are what gets registered with the OIDC provider.
//
// Example usage:
//
//	ks, err := keystore.Load("./full_key.jwk")
//	if err != nil {
//		// handle error
//	}
//	assertion, err := ks.ClientAssertion(clientID, []string{issuer, tokenEndpoint})
package keystore
