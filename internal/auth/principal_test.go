// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClaims decodes claims the way they arrive from a provider
func testClaims(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestNewPrincipal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		claims    string
		want      *Principal
		wantIsErr error
	}{
		{
			name:   "full",
			claims: `{"sub":"alice","name":"Alice Smith","email":"alice@example.com","email_verified":true,"phone_number":"+1 555 0100","locale":"en-US","address":{"country":"US"},"extra":[1,2]}`,
			want: &Principal{
				Subject:       "alice",
				Name:          "Alice Smith",
				Email:         "alice@example.com",
				EmailVerified: true,
				PhoneNumber:   "+1 555 0100",
				Locale:        "en-US",
				Address:       map[string]any{"country": "US"},
			},
		},
		{
			name:   "weakly-typed",
			claims: `{"sub":12345,"email_verified":"true"}`,
			want:   &Principal{Subject: "12345", EmailVerified: true},
		},
		{
			name:      "missing-sub",
			claims:    `{"name":"Alice Smith"}`,
			wantIsErr: ErrInvalidPrincipal,
		},
		{
			name:      "invalid-email",
			claims:    `{"sub":"alice","email":"not-an-email"}`,
			wantIsErr: ErrInvalidPrincipal,
		},
		{
			name:      "wrong-type",
			claims:    `{"sub":"alice","address":"not an object"}`,
			wantIsErr: ErrInvalidPrincipal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			claims := testClaims(t, tt.claims)
			got, err := NewPrincipal(claims)
			if tt.wantIsErr != nil {
				require.ErrorIs(err, tt.wantIsErr)
				assert.Nil(got)
				return
			}
			require.NoError(err)
			tt.want.Claims = claims
			assert.Equal(tt.want, got)
		})
	}

	t.Run("nil", func(t *testing.T) {
		_, err := NewPrincipal(nil)
		require.ErrorIs(t, err, ErrNilParameter)
	})
}

func TestPrincipal_DisplayName(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("Alice", (&Principal{Subject: "s", Name: "Alice", Email: "a@example.com"}).DisplayName())
	assert.Equal("alice", (&Principal{Subject: "s", PreferredUsername: "alice"}).DisplayName())
	assert.Equal("a@example.com", (&Principal{Subject: "s", Email: "a@example.com"}).DisplayName())
	assert.Equal("s", (&Principal{Subject: "s"}).DisplayName())
}

func TestIdentitySerializer_RoundTrip(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	p, err := NewPrincipal(testClaims(t, `{"sub":"alice","email":"alice@example.com","address":{"street_address":"1 Main St"},"amr":["pwd"],"auth_time":1700000000}`))
	require.NoError(err)

	v, err := IdentitySerializer(ctx, p)
	require.NoError(err)
	raw, err := json.Marshal(v)
	require.NoError(err)
	got, err := IdentityDeserializer(ctx, raw)
	require.NoError(err)
	assert.Equal(p, got)

	_, err = IdentityDeserializer(ctx, json.RawMessage(`"not a principal"`))
	require.ErrorIs(err, ErrInvalidPrincipal)
}
