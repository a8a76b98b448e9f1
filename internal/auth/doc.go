// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package auth authenticates browser sessions.

An Authenticator keeps a registry of named Strategies.  Its Initialize
middleware restores the logged in Principal from the session on every request,
and Authenticate runs a strategy for a login or callback route: a strategy
either redirects the browser (to an OIDC provider, for example), fails, or
succeeds with a Principal which is then stored in the session.

The "oidc" strategy can only be registered once the relying party's keys are
loaded and its issuer has been discovered.  Bootstrap runs both concurrently,
joins them, and registers the strategy; until then its State is pending and
login routes should answer 503.

Example usage:

	a := auth.NewAuthenticator(auth.WithLogger(logger))
	b, err := auth.NewBootstrap(a, loadKeys, discover, buildStrategy)
	if err != nil {
		// handle error
	}
	go b.Run(ctx)

	mux.Handle("/login", a.Authenticate("oidc", auth.Options{}))
*/
package auth
