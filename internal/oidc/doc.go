// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package oidc is the relying party half of an OIDC authorization code flow.

Primary types provided by the package

* Config: the issuer side configuration used for discovery (issuer URL,
supported id_token signing algorithms, audiences, optional provider CA).

* Issuer: the discovered provider metadata and the go-oidc provider built from
it.  Discovery happens once, see Discover.

* Client: a relying party bound to an Issuer.  It authenticates to the token
endpoint with private_key_jwt client assertions produced by an
AssertionSigner.

* Request: one user's authentication attempt (state, nonce, redirect URL,
scopes and an expiration).  It's JSON serializable so it can be parked in a
server side session between the redirect and the callback.

* TokenSet: the result of a successful code exchange.  Tokens are redacted
when printed or marshaled.

* TestProvider: an in-process IdP for tests.
*/
package oidc
