// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_Redacted(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		token fmt.Stringer
		want  string
	}{
		{name: "id_token", token: IDToken("secret"), want: RedactedIDToken},
		{name: "access_token", token: AccessToken("secret"), want: RedactedAccessToken},
		{name: "refresh_token", token: RefreshToken("secret"), want: RedactedRefreshToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			assert.Equal(tt.want, tt.token.String())
			got, err := json.Marshal(tt.token)
			require.NoError(err)
			assert.Equal(fmt.Sprintf("%q", tt.want), string(got))
		})
	}
}

func TestTokenSet(t *testing.T) {
	t.Parallel()
	t.Run("marshal-redacts", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		ts := &TokenSet{
			IDToken:     "id-secret",
			AccessToken: "at-secret",
			Claims:      map[string]any{"sub": "alice"},
		}
		b, err := json.Marshal(ts)
		require.NoError(err)
		assert.False(strings.Contains(string(b), "secret"))
		assert.Contains(string(b), `"sub":"alice"`)
	})
	t.Run("subject", func(t *testing.T) {
		assert := assert.New(t)
		var nilSet *TokenSet
		assert.Equal("", nilSet.Subject())
		assert.Equal("", (&TokenSet{}).Subject())
		assert.Equal("alice", (&TokenSet{Claims: map[string]any{"sub": "alice"}}).Subject())
	})
	t.Run("is-expired", func(t *testing.T) {
		assert := assert.New(t)
		assert.False((&TokenSet{}).IsExpired())
		assert.True((&TokenSet{Expiry: time.Now().Add(-time.Minute)}).IsExpired())
		assert.False((&TokenSet{Expiry: time.Now().Add(time.Hour)}).IsExpired())
	})
	t.Run("token-source", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		ts := &TokenSet{AccessToken: "at", TokenType: "Bearer"}
		tk, err := ts.StaticTokenSource().Token()
		require.NoError(err)
		assert.Equal("at", tk.AccessToken)
	})
}
