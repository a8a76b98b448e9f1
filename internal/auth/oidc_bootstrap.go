// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"context"
	"fmt"

	"github.com/hashicorp/cap-oidc-login/internal/keystore"
	"github.com/hashicorp/cap-oidc-login/internal/oidc"
	"github.com/hashicorp/go-hclog"
)

// KeyFileLoader returns a KeyLoader which reads the JWK Set file at path.
func KeyFileLoader(path string) KeyLoader {
	return func(context.Context) (*keystore.KeyStore, error) {
		return keystore.Load(path)
	}
}

// IssuerDiscoverer returns a Discoverer for the issuer config.
func IssuerDiscoverer(c *oidc.Config) Discoverer {
	return func(ctx context.Context) (*oidc.Issuer, error) {
		return oidc.Discover(ctx, c)
	}
}

// OIDCStrategyFactory returns a StrategyFactory which creates a
// private_key_jwt client for clientID, signing its client assertions with the
// key store, and wraps it in an OIDCStrategy.
func OIDCStrategyFactory(logger hclog.Logger, clientID, redirectURL string, opt ...Option) StrategyFactory {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return func(ks *keystore.KeyStore, iss *oidc.Issuer) (Strategy, error) {
		const op = "auth.OIDCStrategyFactory"
		c, err := oidc.NewClient(iss, oidc.ClientConfig{
			ClientID:                clientID,
			TokenEndpointAuthMethod: oidc.AuthMethodPrivateKeyJWT,
		}, ks)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("Created client", "client", c.String(), "kid", ks.SigningKey().KeyID)
		s, err := NewOIDCStrategy(c, redirectURL, append([]Option{WithLogger(logger)}, opt...)...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, nil
	}
}
