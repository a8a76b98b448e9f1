// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package session provides server side sessions for net/http handlers.

A session is a set of JSON encoded values kept in a Store and found through
an opaque id, which is delivered to the browser in a signed cookie.  Sessions
are created lazily: a request without a valid cookie gets a new, empty
session, and that session is only saved (and only then is a cookie issued)
once a handler modifies it.  Unmodified sessions are never written back.

Two stores are provided: MemoryStore, an expiring LRU which is the default
and only suitable for a single process demo, and RedisStore.

Example usage:

	m, err := session.NewManager(session.NewMemoryStore(), secret,
		session.WithTTL(24*time.Hour),
	)
	if err != nil {
		// handle error
	}
	http.ListenAndServe(":3000", m.Middleware(mux))

Inside a handler:

	s, _ := session.FromContext(r.Context())
	if err := s.Set("visits", 1); err != nil {
		// handle error
	}
*/
package session
