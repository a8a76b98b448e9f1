// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/coreos/go-oidc/v3/oidc"
)

// IssuerMetadata is the subset of the provider's discovery document the
// relying party cares about.
//
// See: https://openid.net/specs/openid-connect-discovery-1_0.html#ProviderMetadata
type IssuerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserInfoEndpoint                  string   `json:"userinfo_endpoint,omitempty"`
	JWKSURI                           string   `json:"jwks_uri"`
	EndSessionEndpoint                string   `json:"end_session_endpoint,omitempty"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported,omitempty"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported,omitempty"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	TokenEndpointAuthSigningAlgs      []string `json:"token_endpoint_auth_signing_alg_values_supported,omitempty"`
}

// SupportsAuthMethod reports whether the provider advertises the token
// endpoint auth method.  Providers that don't advertise any methods are
// assumed to support it.
func (m IssuerMetadata) SupportsAuthMethod(method string) bool {
	if len(m.TokenEndpointAuthMethodsSupported) == 0 {
		return true
	}
	return slices.Contains(m.TokenEndpointAuthMethodsSupported, method)
}

// Issuer is a discovered OIDC provider.  It's immutable once returned from
// Discover.
type Issuer struct {
	config   *Config
	provider *oidc.Provider
	metadata IssuerMetadata
	client   *http.Client
}

// Discover makes an http request to the issuer's well-known discovery
// endpoint and returns the resulting Issuer.  Discovery is not retried; the
// ctx bounds how long the request may take.
func Discover(ctx context.Context, c *Config) (*Issuer, error) {
	const op = "oidc.Discover"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}

	provider, err := oidc.NewProvider(HTTPClientContext(ctx, client), c.Issuer) // makes http req to issuer for discovery
	if err != nil {
		// we don't know what's causing the problem, so we won't classify the
		// error any further
		return nil, fmt.Errorf("%s: unable to discover issuer %s: %w", op, c.Issuer, err)
	}
	var md IssuerMetadata
	if err := provider.Claims(&md); err != nil {
		return nil, fmt.Errorf("%s: unable to read discovery document: %w", op, err)
	}
	return &Issuer{
		config:   c,
		provider: provider,
		metadata: md,
		client:   client,
	}, nil
}

// Metadata returns the issuer's discovery metadata.
func (i *Issuer) Metadata() IssuerMetadata {
	md := i.metadata
	md.ScopesSupported = slices.Clone(i.metadata.ScopesSupported)
	md.ResponseTypesSupported = slices.Clone(i.metadata.ResponseTypesSupported)
	md.IDTokenSigningAlgValuesSupported = slices.Clone(i.metadata.IDTokenSigningAlgValuesSupported)
	md.TokenEndpointAuthMethodsSupported = slices.Clone(i.metadata.TokenEndpointAuthMethodsSupported)
	md.TokenEndpointAuthSigningAlgs = slices.Clone(i.metadata.TokenEndpointAuthSigningAlgs)
	return md
}

// String is used when logging the issuer
func (i *Issuer) String() string {
	return fmt.Sprintf("Issuer <%s>", i.metadata.Issuer)
}
