// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package metrics collects the server's prometheus metrics in a private
registry.

	m := metrics.New()
	r.Use(m.Middleware)
	r.Handle("/metrics", m.Handler())

	b, err := auth.NewBootstrap(a, loadKeys, discover, build,
		auth.WithStateObserver(m.BootstrapState),
	)

The bootstrap state gauge reports 0 while pending, 1 when ready, 2 when failed
and 3 when OIDC is disabled.
*/
package metrics
