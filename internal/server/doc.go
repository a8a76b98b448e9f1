// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package server is the login demo's HTTP surface: a chi router with the
middleware chain, the site and user pages, the authentication routes, and
the health and metrics endpoints.

Handlers return errors.  Every error, including an unmatched route or a
recovered panic, ends up in one error handler that renders the error page
with the error's status (see StatusCoder), or 500.

The authentication routes are only mounted when OIDC is configured, and
answer 503 until the Bootstrap is ready:

	s, err := server.NewServer(sessions, authenticator, bootstrap,
		server.WithLogger(logger),
		server.WithMetrics(m),
		server.WithCallbackPath("/openid-connect-login"),
	)
	if err != nil {
		return err
	}
	return s.ListenAndServe(ctx, ":3000")
*/
package server
