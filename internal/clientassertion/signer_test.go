// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clientassertion

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return k
}

func testECKey(t *testing.T, c elliptic.Curve) *ecdsa.PrivateKey {
	t.Helper()
	k, err := ecdsa.GenerateKey(c, rand.Reader)
	require.NoError(t, err)
	return k
}

func TestNewSigner(t *testing.T) {
	t.Parallel()
	rsaKey := testRSAKey(t)
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name      string
		jwk       jose.JSONWebKey
		wantAlg   jose.SignatureAlgorithm
		wantIsErr error
	}{
		{
			name:    "rsa",
			jwk:     jose.JSONWebKey{Key: rsaKey, KeyID: "rsa"},
			wantAlg: jose.RS256,
		},
		{
			name:    "rsa-declared-alg",
			jwk:     jose.JSONWebKey{Key: rsaKey, Algorithm: string(jose.PS384)},
			wantAlg: jose.PS384,
		},
		{
			name:    "ec-p384",
			jwk:     jose.JSONWebKey{Key: testECKey(t, elliptic.P384())},
			wantAlg: jose.ES384,
		},
		{
			name:    "ed25519",
			jwk:     jose.JSONWebKey{Key: edKey},
			wantAlg: jose.EdDSA,
		},
		{
			name:      "nil-key",
			jwk:       jose.JSONWebKey{},
			wantIsErr: ErrNilPrivateKey,
		},
		{
			name:      "public-key",
			jwk:       jose.JSONWebKey{Key: &rsaKey.PublicKey},
			wantIsErr: ErrPublicKey,
		},
		{
			name:      "symmetric-key",
			jwk:       jose.JSONWebKey{Key: []byte("a-client-secret-that-is-long-enough"), Algorithm: string(jose.HS256)},
			wantIsErr: ErrUnsupportedAlgorithm,
		},
		{
			name:      "alg-mismatch",
			jwk:       jose.JSONWebKey{Key: rsaKey, Algorithm: string(jose.ES256)},
			wantIsErr: ErrCreatingSigner,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			s, err := NewSigner(tt.jwk)
			if tt.wantIsErr != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantIsErr)
				assert.Nil(s)
				return
			}
			require.NoError(err)
			assert.Equal(tt.wantAlg, s.Algorithm())
			assert.Equal(tt.jwk.KeyID, s.KeyID())
		})
	}
}

func TestSigner_Assertion(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	key := testECKey(t, elliptic.P256())
	now := time.Now().Truncate(time.Second)
	aud := []string{"https://issuer.example.com/", "https://issuer.example.com/token"}

	s, err := NewSigner(
		jose.JSONWebKey{Key: key, KeyID: "client-kid"},
		WithNow(func() time.Time { return now }),
		WithIDGenerator(func() (string, error) { return "test-jti", nil }),
		WithLifetime(time.Minute),
	)
	require.NoError(err)

	signed, err := s.Assertion("client-id", aud)
	require.NoError(err)
	tok, err := jwt.ParseSigned(signed, []jose.SignatureAlgorithm{jose.ES256})
	require.NoError(err)
	require.Len(tok.Headers, 1)
	assert.Equal("client-kid", tok.Headers[0].KeyID)
	assert.Equal("JWT", tok.Headers[0].ExtraHeaders[jose.HeaderType])

	var claims jwt.Claims
	require.NoError(tok.Claims(&key.PublicKey, &claims))
	assert.Equal("client-id", claims.Issuer)
	assert.Equal("client-id", claims.Subject)
	assert.Equal(jwt.Audience(aud), claims.Audience)
	assert.Equal("test-jti", claims.ID)
	assert.Equal(now.Unix(), claims.IssuedAt.Time().Unix())
	assert.Equal(now.Add(time.Minute).Unix(), claims.Expiry.Time().Unix())
	assert.Equal(now.Add(-time.Second).Unix(), claims.NotBefore.Time().Unix())
}

func TestSigner_Assertion_FreshJTI(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	key := testECKey(t, elliptic.P256())
	aud := []string{"https://issuer.example.com/", "https://issuer.example.com/token"}

	s, err := NewSigner(jose.JSONWebKey{Key: key})
	require.NoError(err)
	assert.Empty(s.KeyID())
	ids := map[string]bool{}
	for range 3 {
		signed, err := s.Assertion("client-id", aud)
		require.NoError(err)
		tok, err := jwt.ParseSigned(signed, []jose.SignatureAlgorithm{jose.ES256})
		require.NoError(err)
		var claims jwt.Claims
		require.NoError(tok.Claims(&key.PublicKey, &claims))
		require.NoError(claims.Validate(jwt.Expected{
			Issuer:      "client-id",
			AnyAudience: jwt.Audience{"https://issuer.example.com/token"},
			Time:        time.Now(),
		}))
		ids[claims.ID] = true
	}
	assert.Len(ids, 3)
}

func TestSigner_Assertion_Errors(t *testing.T) {
	t.Parallel()
	key := testECKey(t, elliptic.P256())
	aud := []string{"https://issuer.example.com/"}
	genErr := errors.New("no entropy")

	tests := []struct {
		name      string
		opts      []Option
		clientID  string
		audience  []string
		wantIsErr error
	}{
		{
			name:      "empty-client-id",
			audience:  aud,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "empty-audience",
			clientID:  "client-id",
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "id-generator-error",
			opts:      []Option{WithIDGenerator(func() (string, error) { return "", genErr })},
			clientID:  "client-id",
			audience:  aud,
			wantIsErr: genErr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			s, err := NewSigner(jose.JSONWebKey{Key: key}, tt.opts...)
			require.NoError(err)
			signed, err := s.Assertion(tt.clientID, tt.audience)
			require.Error(err)
			assert.ErrorIs(err, tt.wantIsErr)
			assert.Empty(signed)
		})
	}
}

func TestAlgorithm(t *testing.T) {
	t.Parallel()
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name      string
		key       crypto.PrivateKey
		want      jose.SignatureAlgorithm
		wantIsErr error
	}{
		{name: "rsa", key: testRSAKey(t), want: jose.RS256},
		{name: "p256", key: testECKey(t, elliptic.P256()), want: jose.ES256},
		{name: "p384", key: testECKey(t, elliptic.P384()), want: jose.ES384},
		{name: "p521", key: testECKey(t, elliptic.P521()), want: jose.ES512},
		{name: "ed25519", key: edKey, want: jose.EdDSA},
		{name: "p224", key: testECKey(t, elliptic.P224()), wantIsErr: ErrUnsupportedAlgorithm},
		{name: "secret", key: []byte("secret"), wantIsErr: ErrUnsupportedAlgorithm},
		{name: "nil", key: nil, wantIsErr: ErrNilPrivateKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Algorithm(tt.key)
			if tt.wantIsErr != nil {
				assert.ErrorIs(t, err, tt.wantIsErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
