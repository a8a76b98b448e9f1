// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package clientassertion signs the JWTs a relying party sends to the token
endpoint when it authenticates with private_key_jwt.

Each assertion is issued and subject to the client id, addressed to the
provider, valid for a few minutes and carries a fresh "jti".

See: https://openid.net/specs/openid-connect-core-1_0.html#ClientAuthentication

Example usage:

	s, err := clientassertion.NewSigner(jwk)
	if err != nil {
		// handle error
	}
	assertion, err := s.Assertion("client-id", []string{"https://issuer.example.com/"})
*/
package clientassertion
