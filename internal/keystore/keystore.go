// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package keystore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-jose/go-jose/v4"
	"github.com/hashicorp/cap-oidc-login/internal/clientassertion"
)

// MinRSAKeyBits is the smallest RSA modulus Generate will create.
const MinRSAKeyBits = 2048

// KeyStore is an immutable set of JSON Web Keys with at least one private
// signing key.
type KeyStore struct {
	keys    []jose.JSONWebKey
	signing jose.JSONWebKey
	signer  *clientassertion.Signer
}

// Load reads and parses the JWK Set file at path.
func Load(path string) (*KeyStore, error) {
	const op = "keystore.Load"
	if path == "" {
		return nil, fmt.Errorf("%s: path is empty: %w", op, ErrInvalidParameter)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read key file: %w", op, err)
	}
	ks, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, path, err)
	}
	return ks, nil
}

// Parse parses a JWK Set document.  Every asymmetric key must be valid, and
// the first private asymmetric key that isn't reserved for encryption becomes
// the signing key.
func Parse(data []byte) (*KeyStore, error) {
	const op = "keystore.Parse"
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidKeySet, err)
	}
	if len(set.Keys) == 0 {
		return nil, fmt.Errorf("%s: no keys: %w", op, ErrInvalidKeySet)
	}
	ks := &KeyStore{keys: set.Keys}
	found := false
	for i, k := range set.Keys {
		if _, symmetric := k.Key.([]byte); !symmetric && !k.Valid() {
			return nil, fmt.Errorf("%s: key %d (kid %q): %w", op, i, k.KeyID, ErrInvalidKey)
		}
		if !found && isSigningKey(k) {
			ks.signing = k
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSigningKey)
	}
	var err error
	if ks.signer, err = clientassertion.NewSigner(ks.signing); err != nil {
		return nil, fmt.Errorf("%s: kid %q: %w: %w", op, ks.signing.KeyID, ErrInvalidKey, err)
	}
	return ks, nil
}

// Generate creates a KeyStore holding a single new RSA signing key.  When kid
// is empty the key's RFC 7638 thumbprint is used.
func Generate(kid string, bits int) (*KeyStore, error) {
	const op = "keystore.Generate"
	if bits < MinRSAKeyBits {
		return nil, fmt.Errorf("%s: %d bits is less than %d: %w", op, bits, MinRSAKeyBits, ErrInvalidParameter)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate key: %w", op, err)
	}
	jwk := jose.JSONWebKey{
		Key:       key,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}
	if kid == "" {
		tp, err := jwk.Thumbprint(crypto.SHA256)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to compute thumbprint: %w", op, err)
		}
		kid = base64.RawURLEncoding.EncodeToString(tp)
	}
	jwk.KeyID = kid
	signer, err := clientassertion.NewSigner(jwk)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &KeyStore{keys: []jose.JSONWebKey{jwk}, signing: jwk, signer: signer}, nil
}

// SigningKey returns the private key used for client assertions.
func (ks *KeyStore) SigningKey() jose.JSONWebKey {
	return ks.signing
}

// Len returns the number of keys in the store.
func (ks *KeyStore) Len() int {
	return len(ks.keys)
}

// Public returns the public half of every asymmetric key in the store.
// Symmetric keys are never published.
func (ks *KeyStore) Public() jose.JSONWebKeySet {
	var set jose.JSONWebKeySet
	for _, k := range ks.keys {
		pub := k.Public()
		if pub.Key == nil {
			continue
		}
		set.Keys = append(set.Keys, pub)
	}
	return set
}

// ClientAssertion signs a private_key_jwt client assertion for clientID with
// the store's signing key.
func (ks *KeyStore) ClientAssertion(clientID string, audience []string) (string, error) {
	const op = "KeyStore.ClientAssertion"
	signed, err := ks.signer.Assertion(clientID, audience)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// WriteFile writes the private JWK Set to path with 0600 permissions.  An
// existing file is never overwritten.
func (ks *KeyStore) WriteFile(path string) error {
	const op = "KeyStore.WriteFile"
	data, err := ks.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %s: %w", op, path, ErrKeyFileExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarshalJSON encodes the full (private) JWK Set.
func (ks *KeyStore) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(jose.JSONWebKeySet{Keys: ks.keys}, "", "  ")
}

func isSigningKey(k jose.JSONWebKey) bool {
	if k.Use == "enc" || k.IsPublic() {
		return false
	}
	switch k.Key.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
		return true
	default:
		return false
	}
}

var _ json.Marshaler = (*KeyStore)(nil)
