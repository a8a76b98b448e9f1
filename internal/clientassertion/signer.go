// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clientassertion

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/go-uuid"
)

// Signer signs client assertions with a single private JWK.  It's safe for
// concurrent use.
type Signer struct {
	signer   jose.Signer
	alg      jose.SignatureAlgorithm
	kid      string
	now      func() time.Time
	genID    func() (string, error)
	lifetime time.Duration
}

// NewSigner creates a Signer for the private key.  The JWK's "alg" is used
// when present, otherwise one is picked with Algorithm.  A non-empty "kid"
// is sent as the "kid" header so the provider can find the public key.
//
// Supported options:
//   - WithNow
//   - WithIDGenerator
//   - WithLifetime
func NewSigner(jwk jose.JSONWebKey, opt ...Option) (*Signer, error) {
	const op = "clientassertion.NewSigner"
	switch {
	case jwk.Key == nil:
		return nil, fmt.Errorf("%s: %w", op, ErrNilPrivateKey)
	case jwk.IsPublic():
		return nil, fmt.Errorf("%s: %w", op, ErrPublicKey)
	}
	if k, ok := jwk.Key.(*rsa.PrivateKey); ok {
		if err := k.Validate(); err != nil {
			return nil, fmt.Errorf("%s: invalid RSA key: %w", op, err)
		}
	}
	alg := jose.SignatureAlgorithm(jwk.Algorithm)
	if alg == "" {
		var err error
		if alg, err = Algorithm(jwk.Key); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if isHMAC(alg) {
		return nil, fmt.Errorf("%s: %q needs a client secret: %w", op, alg, ErrUnsupportedAlgorithm)
	}

	sOpts := (&jose.SignerOptions{}).WithType("JWT")
	if jwk.KeyID != "" {
		sOpts = sOpts.WithHeader(jose.HeaderKey("kid"), jwk.KeyID)
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: alg, Key: jwk.Key}, sOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrCreatingSigner, err)
	}
	opts := getSignerOpts(opt...)
	return &Signer{
		signer:   signer,
		alg:      alg,
		kid:      jwk.KeyID,
		now:      opts.withNowFunc,
		genID:    opts.withIDFunc,
		lifetime: opts.withLifetime,
	}, nil
}

// Algorithm returns the signature algorithm the Signer uses.
func (s *Signer) Algorithm() jose.SignatureAlgorithm { return s.alg }

// KeyID returns the "kid" header value, which may be empty.
func (s *Signer) KeyID() string { return s.kid }

// Assertion signs a new assertion for clientID.  Every call produces a new
// token with a new "jti".
func (s *Signer) Assertion(clientID string, audience []string) (string, error) {
	const op = "Signer.Assertion"
	switch {
	case clientID == "":
		return "", fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	case len(audience) == 0:
		return "", fmt.Errorf("%s: audience is empty: %w", op, ErrInvalidParameter)
	}
	id, err := s.genID()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate token id: %w", op, err)
	}
	now := s.now().UTC()
	claims := jwt.Claims{
		Issuer:    clientID,
		Subject:   clientID,
		Audience:  audience,
		Expiry:    jwt.NewNumericDate(now.Add(s.lifetime)),
		NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Second)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        id,
	}
	token, err := jwt.Signed(s.signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("%s: unable to sign assertion: %w", op, err)
	}
	return token, nil
}

// Algorithm picks the signing algorithm for a private key whose JWK doesn't
// declare one: RS256 for RSA, EdDSA for Ed25519, and the ES algorithm
// matching the curve for ECDSA.
func Algorithm(key any) (jose.SignatureAlgorithm, error) {
	const op = "clientassertion.Algorithm"
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return jose.RS256, nil
	case *ecdsa.PrivateKey:
		switch k.Curve {
		case elliptic.P256():
			return jose.ES256, nil
		case elliptic.P384():
			return jose.ES384, nil
		case elliptic.P521():
			return jose.ES512, nil
		}
		return "", fmt.Errorf("%s: curve %s: %w", op, k.Curve.Params().Name, ErrUnsupportedAlgorithm)
	case ed25519.PrivateKey:
		return jose.EdDSA, nil
	case nil:
		return "", fmt.Errorf("%s: %w", op, ErrNilPrivateKey)
	default:
		return "", fmt.Errorf("%s: key type %T: %w", op, key, ErrUnsupportedAlgorithm)
	}
}

func isHMAC(alg jose.SignatureAlgorithm) bool {
	switch alg {
	case jose.HS256, jose.HS384, jose.HS512:
		return true
	}
	return false
}

func generateID() (string, error) { return uuid.GenerateUUID() }
