// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// oidclogin is a small web site whose users log in with OpenID Connect.  The
// relying party authenticates to the provider's token endpoint with
// private_key_jwt client assertions signed by a key from a local JWK Set.
//
// The server starts before the OIDC provider is known: the key file is loaded
// and the issuer discovered concurrently in the background, and the login
// routes answer 503 until both are done.  See cmd/oidc-login for the binary
// and .env.example for its configuration.
package oidclogin
