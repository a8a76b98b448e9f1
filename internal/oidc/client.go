// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	// AuthMethodPrivateKeyJWT is the only token endpoint auth method a Client
	// supports.
	AuthMethodPrivateKeyJWT = "private_key_jwt"

	// ClientAssertionType is the value for the client_assertion_type
	// parameter.
	//
	// See: https://www.rfc-editor.org/rfc/rfc7523.html#section-2.2
	ClientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
)

// AssertionSigner signs client assertion JWTs for private_key_jwt token
// endpoint authentication.
type AssertionSigner interface {
	ClientAssertion(clientID string, audience []string) (string, error)
}

// ClientConfig describes the relying party registered with the Issuer.
type ClientConfig struct {
	// ClientID is the relying party id
	ClientID string

	// TokenEndpointAuthMethod defaults to AuthMethodPrivateKeyJWT, which is
	// also the only supported value.
	TokenEndpointAuthMethod string
}

// Client is a relying party bound to a discovered Issuer.
type Client struct {
	issuer *Issuer
	config ClientConfig
	signer AssertionSigner
	now    func() time.Time
}

// NewClient creates a Client for the issuer.  The signer is used to create
// a client assertion for every token endpoint request.
//
// Supported options:
//   - WithNow
func NewClient(issuer *Issuer, cc ClientConfig, signer AssertionSigner, opt ...Option) (*Client, error) {
	const op = "oidc.NewClient"
	switch {
	case issuer == nil:
		return nil, fmt.Errorf("%s: issuer is nil: %w", op, ErrNilParameter)
	case signer == nil:
		return nil, fmt.Errorf("%s: assertion signer is nil: %w", op, ErrNilParameter)
	case cc.ClientID == "":
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	}
	if cc.TokenEndpointAuthMethod == "" {
		cc.TokenEndpointAuthMethod = AuthMethodPrivateKeyJWT
	}
	if cc.TokenEndpointAuthMethod != AuthMethodPrivateKeyJWT {
		return nil, fmt.Errorf("%s: %q: %w", op, cc.TokenEndpointAuthMethod, ErrUnsupportedAuthMethod)
	}
	if !issuer.metadata.SupportsAuthMethod(cc.TokenEndpointAuthMethod) {
		return nil, fmt.Errorf("%s: issuer %s does not support %q: %w", op, issuer.metadata.Issuer, cc.TokenEndpointAuthMethod, ErrUnsupportedAuthMethod)
	}
	// fail now rather than on the first callback
	if _, err := signer.ClientAssertion(cc.ClientID, issuer.assertionAudience()); err != nil {
		return nil, fmt.Errorf("%s: unable to sign a client assertion: %w", op, err)
	}
	opts := getClientOpts(opt...)
	return &Client{
		issuer: issuer,
		config: cc,
		signer: signer,
		now:    opts.withNowFunc,
	}, nil
}

// ClientID returns the client's id
func (c *Client) ClientID() string { return c.config.ClientID }

// Issuer returns the client's issuer
func (c *Client) Issuer() *Issuer { return c.issuer }

// String is used when logging the client
func (c *Client) String() string {
	return fmt.Sprintf("Client <%s> (%s) for %s", c.config.ClientID, c.config.TokenEndpointAuthMethod, c.issuer)
}

// AuthURL will generate a URL the caller can use to kick off an OIDC
// authorization code flow with the issuer.
func (c *Client) AuthURL(r *Request) (string, error) {
	const op = "Client.AuthURL"
	if r == nil {
		return "", fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	if r.State == r.Nonce {
		return "", fmt.Errorf("%s: request state and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}
	if r.IsExpired() {
		return "", fmt.Errorf("%s: %w", op, ErrExpiredRequest)
	}
	opts := []oauth2.AuthCodeOption{
		oidc.Nonce(r.Nonce),
	}
	if len(r.UILocales) > 0 {
		opts = append(opts, oauth2.SetAuthURLParam("ui_locales", strings.Join(r.UILocales, " ")))
	}
	return c.oauth2Config(r).AuthCodeURL(r.State, opts...), nil
}

// Exchange will request a token from the oidc token endpoint, using the
// authorizationCode and authorizationState it received in an earlier
// successful oidc authentication response.  The client authenticates with a
// freshly signed client assertion.
//
// It will also validate the authorizationState it receives against the
// existing Request for the user's oidc authentication flow, and verify the
// returned id_token (signature, audience, expiry and nonce).
func (c *Client) Exchange(ctx context.Context, r *Request, authorizationState, authorizationCode string) (*TokenSet, error) {
	const op = "Client.Exchange"
	switch {
	case r == nil:
		return nil, fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	case authorizationCode == "":
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	case r.State != authorizationState:
		return nil, fmt.Errorf("%s: authentication state and authorization state are not equal: %w", op, ErrResponseStateInvalid)
	case r.IsExpired():
		return nil, fmt.Errorf("%s: authentication request is expired: %w", op, ErrExpiredRequest)
	}

	assertion, err := c.signer.ClientAssertion(c.config.ClientID, c.issuer.assertionAudience())
	if err != nil {
		return nil, fmt.Errorf("%s: unable to sign client assertion: %w", op, err)
	}

	oauth2Token, err := c.oauth2Config(r).Exchange(
		HTTPClientContext(ctx, c.issuer.client),
		authorizationCode,
		oauth2.SetAuthURLParam("client_assertion_type", ClientAssertionType),
		oauth2.SetAuthURLParam("client_assertion", assertion),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %w: %w", op, ErrExchangeFailed, err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%s: id_token is missing from auth code exchange: %w", op, ErrMissingIDToken)
	}
	claims, err := c.VerifyIDToken(ctx, IDToken(rawIDToken), r.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%s: id_token failed verification: %w", op, err)
	}
	return &TokenSet{
		IDToken:      IDToken(rawIDToken),
		AccessToken:  AccessToken(oauth2Token.AccessToken),
		RefreshToken: RefreshToken(oauth2Token.RefreshToken),
		TokenType:    oauth2Token.TokenType,
		Expiry:       oauth2Token.Expiry,
		Claims:       claims,
	}, nil
}

// VerifyIDToken will verify the inbound IDToken and return its claims.  It
// verifies it's been signed by the provider, it validates the nonce, and
// performs any additional checks depending on the provider's config
// (audiences, etc).
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
func (c *Client) VerifyIDToken(ctx context.Context, t IDToken, nonce string) (map[string]any, error) {
	const op = "Client.VerifyIDToken"
	if t == "" {
		return nil, fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if nonce == "" {
		return nil, fmt.Errorf("%s: nonce is empty: %w", op, ErrInvalidParameter)
	}
	algs := make([]string, 0, len(c.issuer.config.SupportedSigningAlgs))
	for _, a := range c.issuer.config.SupportedSigningAlgs {
		algs = append(algs, string(a))
	}
	verifier := c.issuer.provider.Verifier(&oidc.Config{
		ClientID:             c.config.ClientID,
		SupportedSigningAlgs: algs,
		Now:                  c.now,
	})

	oidcIDToken, err := verifier.Verify(HTTPClientContext(ctx, c.issuer.client), string(t))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrIDTokenVerificationFailed, err)
	}
	if oidcIDToken.Nonce != nonce {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidNonce)
	}
	if auds := c.issuer.config.Audiences; len(auds) > 0 {
		if !slices.ContainsFunc(oidcIDToken.Audience, func(aud string) bool { return slices.Contains(auds, aud) }) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidAudience)
		}
	}
	claims := map[string]any{}
	if err := oidcIDToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: unable to read id_token claims: %w", op, err)
	}
	return claims, nil
}

// UserInfo gets the UserInfo claims from the provider using the token set's
// access_token.  The user info "sub" must match the id_token "sub".
func (c *Client) UserInfo(ctx context.Context, t *TokenSet) (map[string]any, error) {
	const op = "Client.UserInfo"
	if t == nil {
		return nil, fmt.Errorf("%s: token set is nil: %w", op, ErrNilParameter)
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%s: access_token is empty: %w", op, ErrInvalidParameter)
	}
	userinfo, err := c.issuer.provider.UserInfo(HTTPClientContext(ctx, c.issuer.client), t.StaticTokenSource())
	if err != nil {
		return nil, fmt.Errorf("%s: provider UserInfo request failed: %w: %w", op, ErrUserInfoFailed, err)
	}
	if sub := t.Subject(); sub != "" && userinfo.Subject != sub {
		return nil, fmt.Errorf("%s: %w", op, ErrUserInfoSubjectMismatch)
	}
	claims := map[string]any{}
	if err := userinfo.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: failed to get UserInfo claims: %w: %w", op, ErrUserInfoFailed, err)
	}
	return claims, nil
}

func (c *Client) oauth2Config(r *Request) *oauth2.Config {
	endpoint := c.issuer.provider.Endpoint()
	// the client_assertion travels in the form body alongside client_id
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	// Add the "openid" scope, which is a required scope for oidc flows
	scopes := []string{oidc.ScopeOpenID}
	for _, s := range r.Scopes {
		if s != oidc.ScopeOpenID && !slices.Contains(scopes, s) {
			scopes = append(scopes, s)
		}
	}
	return &oauth2.Config{
		ClientID:    c.config.ClientID,
		RedirectURL: r.RedirectURL,
		Endpoint:    endpoint,
		Scopes:      scopes,
	}
}

// assertionAudience is the issuer identifier and its token endpoint, which
// providers variously expect as a client assertion's "aud".
func (i *Issuer) assertionAudience() []string {
	aud := []string{i.metadata.Issuer}
	if ep := i.metadata.TokenEndpoint; ep != "" && ep != i.metadata.Issuer {
		aud = append(aud, ep)
	}
	return aud
}

// clientOptions is the set of available options for Client functions
type clientOptions struct {
	withNowFunc func() time.Time
}

// clientDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func clientDefaults() clientOptions {
	return clientOptions{
		withNowFunc: time.Now,
	}
}

// getClientOpts gets the client defaults and applies the opt overrides passed
// in
func getClientOpts(opt ...Option) clientOptions {
	opts := clientDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
