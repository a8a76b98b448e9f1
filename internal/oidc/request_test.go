// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewRequest(t *testing.T) {
	t.Parallel()
	testNow := time.Now().Add(-1 * time.Minute).Truncate(time.Second)

	tests := []struct {
		name        string
		expireIn    time.Duration
		redirectURL string
		opt         []Option
		wantScopes  []string
		wantLocales []string
		wantIsErr   error
	}{
		{
			name:        "valid",
			expireIn:    5 * time.Minute,
			redirectURL: "https://example.com/callback",
		},
		{
			name:        "valid-with-opts",
			expireIn:    5 * time.Minute,
			redirectURL: "https://example.com/callback",
			opt: []Option{
				WithNow(func() time.Time { return testNow }),
				WithScopes("profile", "email"),
				WithUILocales(language.CanadianFrench, language.English),
			},
			wantScopes:  []string{"profile", "email"},
			wantLocales: []string{"fr-CA", "en"},
		},
		{
			name:        "zero-expiry",
			redirectURL: "https://example.com/callback",
			wantIsErr:   ErrInvalidParameter,
		},
		{
			name:      "empty-redirect",
			expireIn:  time.Minute,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := NewRequest(tt.expireIn, tt.redirectURL, tt.opt...)
			if tt.wantIsErr != nil {
				require.ErrorIs(err, tt.wantIsErr)
				assert.Nil(got)
				return
			}
			require.NoError(err)
			assert.True(strings.HasPrefix(got.State, "st_"))
			assert.True(strings.HasPrefix(got.Nonce, "n_"))
			assert.NotEqual(got.State, got.Nonce)
			assert.Equal(tt.redirectURL, got.RedirectURL)
			assert.Equal(tt.wantScopes, got.Scopes)
			assert.Equal(tt.wantLocales, got.UILocales)
			if len(tt.opt) > 0 {
				assert.Equal(testNow.Add(tt.expireIn), got.Expiration)
			}
		})
	}
}

func TestRequest_IsExpired(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.True((&Request{Expiration: time.Now().Add(-time.Minute)}).IsExpired())
	// inside the skew
	assert.True((&Request{Expiration: time.Now().Add(DefaultRequestExpirySkew / 2)}).IsExpired())
	assert.False((&Request{Expiration: time.Now().Add(time.Minute)}).IsExpired())
}

func TestRequest_JSON(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	r, err := NewRequest(time.Minute, "https://example.com/callback", WithScopes("email"))
	require.NoError(err)
	b, err := json.Marshal(r)
	require.NoError(err)
	var got Request
	require.NoError(json.Unmarshal(b, &got))
	assert.Equal(r.State, got.State)
	assert.Equal(r.Nonce, got.Nonce)
	assert.Equal(r.Scopes, got.Scopes)
	assert.True(r.Expiration.Equal(got.Expiration))
}

func TestNewID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		prefix     string
		wantPrefix string
	}{
		{name: "no-prefix"},
		{name: "with-prefix", prefix: "alice", wantPrefix: "alice_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := NewID(tt.prefix)
			require.NoError(err)
			assert.True(strings.HasPrefix(got, tt.wantPrefix))
			// uuids are 36 chars
			assert.Len(got, 36+len(tt.wantPrefix))
			again, err := NewID(tt.prefix)
			require.NoError(err)
			assert.NotEqual(got, again)
		})
	}
}
