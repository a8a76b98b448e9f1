// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/cap-oidc-login/internal/oidc"
	"github.com/hashicorp/cap-oidc-login/internal/session"
	"github.com/hashicorp/go-hclog"
)

const (
	// OIDCStrategyName is the name the OIDC strategy is registered under.
	OIDCStrategyName = "oidc"

	// DefaultRequestTTL is how long a user has to complete a login at the
	// provider.
	DefaultRequestTTL = 10 * time.Minute
)

// VerifyFunc turns a verified token set and the userinfo claims into a
// principal.  Returning an error refuses the login.
type VerifyFunc func(ctx context.Context, tokens *oidc.TokenSet, userInfo map[string]any) (*Principal, error)

// OIDCStrategy runs the authorization code flow against one issuer.  A
// request without "code" or "error" query parameters starts a login; one
// with them is the provider's callback.
type OIDCStrategy struct {
	client      *oidc.Client
	redirectURL string
	sessionKey  string
	logger      hclog.Logger
	opts        oidcStrategyOptions
	verify      VerifyFunc
}

var _ Strategy = (*OIDCStrategy)(nil)

// NewOIDCStrategy creates a strategy for the client.  The redirectURL must be
// registered with the provider and route to this strategy.
//
// Supported options:
//   - WithLogger
//   - WithScopes
//   - WithUILocales
//   - WithUserInfo
//   - WithRequestTTL
//   - WithVerify
func NewOIDCStrategy(client *oidc.Client, redirectURL string, opt ...Option) (*OIDCStrategy, error) {
	const op = "auth.NewOIDCStrategy"
	if client == nil {
		return nil, fmt.Errorf("%s: client is nil: %w", op, ErrNilParameter)
	}
	u, err := url.Parse(redirectURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%s: redirect URL %q must be absolute: %w", op, redirectURL, ErrInvalidParameter)
	}
	opts := getOIDCStrategyOpts(opt...)
	s := &OIDCStrategy{
		client:      client,
		redirectURL: redirectURL,
		sessionKey:  "oidc:" + issuerHost(client),
		logger:      opts.withLogger,
		opts:        opts,
	}
	s.verify = opts.withVerify
	if s.verify == nil {
		s.verify = s.defaultVerify
	}
	return s, nil
}

// RedirectPath is the path component of the redirect URL, which is where the
// callback route must be mounted.
func (s *OIDCStrategy) RedirectPath() string {
	u, _ := url.Parse(s.redirectURL)
	return u.Path
}

// Authenticate implements Strategy.
func (s *OIDCStrategy) Authenticate(w http.ResponseWriter, r *http.Request) (Result, error) {
	const op = "OIDCStrategy.Authenticate"
	sess, ok := session.FromContext(r.Context())
	if !ok {
		return Result{}, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	q := r.URL.Query()
	if q.Has("error") || q.Has("code") {
		return s.callback(r.Context(), sess, q), nil
	}

	req, err := oidc.NewRequest(s.opts.withRequestTTL, s.redirectURL,
		oidc.WithScopes(s.opts.withScopes...),
		oidc.WithUILocales(s.opts.withUILocales...),
	)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	authURL, err := s.client.AuthURL(req)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := sess.Set(s.sessionKey, req); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return Result{Outcome: OutcomeRedirect, Location: authURL}, nil
}

// callback completes a login.  Every problem with the response is a failed
// login rather than an error.
func (s *OIDCStrategy) callback(ctx context.Context, sess *session.Session, q url.Values) Result {
	var req oidc.Request
	found, err := sess.Get(s.sessionKey, &req)
	sess.Delete(s.sessionKey)

	if e := q.Get("error"); e != "" {
		return fail(fmt.Errorf("%w: %s: %s", ErrProviderError, e, q.Get("error_description")))
	}
	switch {
	case err != nil:
		return fail(err)
	case !found:
		return fail(ErrMissingRequest)
	}

	tokens, err := s.client.Exchange(ctx, &req, q.Get("state"), q.Get("code"))
	if err != nil {
		return fail(err)
	}
	claims := tokens.Claims
	if s.opts.withUserInfo {
		if claims, err = s.userInfo(ctx, tokens); err != nil {
			return fail(err)
		}
	}
	p, err := s.verify(ctx, tokens, claims)
	if err != nil {
		return fail(err)
	}
	return Result{Outcome: OutcomeSuccess, Principal: p}
}

func (s *OIDCStrategy) userInfo(ctx context.Context, tokens *oidc.TokenSet) (map[string]any, error) {
	const op = "OIDCStrategy.userInfo"
	if s.client.Issuer().Metadata().UserInfoEndpoint == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUserInfoDisabled)
	}
	claims, err := s.client.UserInfo(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}

func (s *OIDCStrategy) defaultVerify(_ context.Context, tokens *oidc.TokenSet, userInfo map[string]any) (*Principal, error) {
	s.logger.Info("received and validated tokens", "tokens", tokens.IDToken, "sub", tokens.Subject())
	s.logger.Debug("id_token claims", "claims", tokens.Claims)
	s.logger.Debug("userinfo", "claims", userInfo)
	return NewPrincipal(userInfo)
}

func fail(err error) Result {
	return Result{Outcome: OutcomeFail, Reason: err.Error()}
}

func issuerHost(c *oidc.Client) string {
	u, err := url.Parse(c.Issuer().Metadata().Issuer)
	if err != nil || u.Host == "" {
		return c.Issuer().Metadata().Issuer
	}
	return u.Host
}
