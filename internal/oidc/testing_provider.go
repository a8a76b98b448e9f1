// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

const testProviderKeyID = "test-provider-key"

// TestProvider is a local TLS server that supports test provider capabilities
// which make writing tests much easier.  It serves discovery, authorization,
// token (private_key_jwt only), userinfo and jwks endpoints.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	signingKey *ecdsa.PrivateKey
	jwks       *jose.JSONWebKeySet

	mu                  sync.Mutex
	clientID            string
	clientKeys          jose.JSONWebKeySet
	allowedRedirectURIs []string
	replySubject        string
	replyUserInfo       map[string]interface{}
	expectedAuthCode    string
	lastAuthNonce       string
	issuedAccessToken   string
	userInfoSubject     string
	customClaims        map[string]interface{}
	omitIDToken         bool
	disableUserInfo     bool
	authMethods         []string
	tokenRequests       int

	t testing.TB
}

// StartTestProvider creates a disposable TestProvider.  The provider is
// stopped when the test completes.
func StartTestProvider(t testing.TB) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		allowedRedirectURIs: []string{
			"https://example.com",
		},
		replySubject: "alice@example.com",
		replyUserInfo: map[string]interface{}{
			"name":           "Alice Smith",
			"email":          "alice@example.com",
			"email_verified": true,
		},
		expectedAuthCode: "test-auth-code",
		authMethods:      []string{AuthMethodPrivateKeyJWT},
		t:                t,
	}
	p.signingKey = TestGenerateKey(t)
	p.jwks = &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       p.signingKey.Public(),
				KeyID:     testProviderKeyID,
				Algorithm: string(jose.ES256),
				Use:       "sig",
			},
		},
	}

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running
// webserver, which is also the issuer.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns an http client which trusts the test provider.
func (p *TestProvider) HTTPClient() *http.Client {
	return p.httpServer.Client()
}

// SetClient configures the client id and the public keys its client
// assertions must be signed with.
func (p *TestProvider) SetClient(clientID string, keys jose.JSONWebKeySet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientKeys = keys
}

// SetExpectedAuthCode configures the auth code to return from /auth and the
// allowed auth code for /token.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetAllowedRedirectURIs allows you to configure the allowed redirect URIs
// for the OIDC workflow. If not configured a sample of "https://example.com"
// is used.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetSubject configures the "sub" of issued id_tokens and userinfo replies.
func (p *TestProvider) SetSubject(sub string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replySubject = sub
}

// SetUserInfoSubject overrides the userinfo "sub", which lets a test force a
// mismatch with the id_token.
func (p *TestProvider) SetUserInfoSubject(sub string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoSubject = sub
}

// SetUserInfo configures the claims returned by the userinfo endpoint (in
// addition to "sub").
func (p *TestProvider) SetUserInfo(claims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserInfo = claims
}

// SetCustomClaims lets you set claims to return in the id_token.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetAuthMethods configures the token_endpoint_auth_methods_supported the
// provider advertises.
func (p *TestProvider) SetAuthMethods(methods ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authMethods = methods
}

// OmitIDTokens forces an error state where the /token endpoint does not
// return an id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// DisableUserInfo makes the userinfo endpoint return 404 and omits it from
// the discovery config.
func (p *TestProvider) DisableUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = true
}

// TokenRequests returns the number of requests the token endpoint accepted.
func (p *TestProvider) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequests
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()

	redirectURI := qv.Get("redirect_uri") +
		"?state=" + url.QueryEscape(qv.Get("state")) +
		"&error=" + url.QueryEscape(errorCode)

	if errorMessage != "" {
		redirectURI += "&error_description=" + url.QueryEscape(errorMessage)
	}

	http.Redirect(w, req, redirectURI, http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}

	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		reply := IssuerMetadata{
			Issuer:                            p.Addr(),
			AuthorizationEndpoint:             p.Addr() + "/auth",
			TokenEndpoint:                     p.Addr() + "/token",
			JWKSURI:                           p.Addr() + "/certs",
			UserInfoEndpoint:                  p.Addr() + "/userinfo",
			ScopesSupported:                   []string{"openid", "profile", "email", "phone", "address"},
			ResponseTypesSupported:            []string{"code"},
			IDTokenSigningAlgValuesSupported:  []string{string(jose.ES256)},
			TokenEndpointAuthMethodsSupported: p.authMethods,
		}
		if p.disableUserInfo {
			reply.UserInfoEndpoint = ""
		}
		_ = p.writeJSON(w, &reply)

	case "/auth":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		switch {
		case qv.Get("response_type") != "code":
			p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
			return
		case !slices.Contains(strings.Fields(qv.Get("scope")), "openid"):
			p.writeAuthErrorResponse(w, req, "invalid_scope", "")
			return
		case qv.Get("client_id") != p.clientID:
			p.writeAuthErrorResponse(w, req, "unauthorized_client", "")
			return
		case p.expectedAuthCode == "":
			p.writeAuthErrorResponse(w, req, "access_denied", "")
			return
		case qv.Get("state") == "":
			p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
			return
		case !slices.Contains(p.allowedRedirectURIs, qv.Get("redirect_uri")):
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		p.lastAuthNonce = qv.Get("nonce")

		redirectURI := qv.Get("redirect_uri") +
			"?state=" + url.QueryEscape(qv.Get("state")) +
			"&code=" + url.QueryEscape(p.expectedAuthCode)
		http.Redirect(w, req, redirectURI, http.StatusFound)

	case "/certs":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, p.jwks)

	case "/token":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch {
		case req.FormValue("grant_type") != "authorization_code":
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "bad grant_type")
			return
		case !slices.Contains(p.allowedRedirectURIs, req.FormValue("redirect_uri")):
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
			return
		case req.FormValue("code") != p.expectedAuthCode:
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "unexpected auth code")
			return
		case req.FormValue("client_id") != p.clientID:
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "unknown client")
			return
		}
		if err := p.verifyClientAssertion(req); err != nil {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", err.Error())
			return
		}
		p.tokenRequests++

		now := time.Now()
		stdClaims := jwt.Claims{
			Subject:   p.replySubject,
			Issuer:    p.Addr(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			Expiry:    jwt.NewNumericDate(now.Add(5 * time.Minute)),
			Audience:  jwt.Audience{p.clientID},
		}
		privateClaims := map[string]interface{}{
			"nonce": p.lastAuthNonce,
		}
		for k, v := range p.customClaims {
			privateClaims[k] = v
		}
		idToken := TestSignJWT(p.t, p.signingKey, testProviderKeyID, stdClaims, privateClaims)
		accessToken, err := NewID("at")
		if err != nil {
			_ = p.writeTokenErrorResponse(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		p.issuedAccessToken = accessToken

		reply := struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
			ExpiresIn   int    `json:"expires_in"`
			IDToken     string `json:"id_token,omitempty"`
		}{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   300,
			IDToken:     idToken,
		}
		if p.omitIDToken {
			reply.IDToken = ""
		}
		_ = p.writeJSON(w, &reply)

	case "/userinfo":
		if p.disableUserInfo {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if req.Header.Get("Authorization") != "Bearer "+p.issuedAccessToken || p.issuedAccessToken == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		reply := map[string]interface{}{}
		for k, v := range p.replyUserInfo {
			reply[k] = v
		}
		reply["sub"] = p.replySubject
		if p.userInfoSubject != "" {
			reply["sub"] = p.userInfoSubject
		}
		_ = p.writeJSON(w, reply)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// verifyClientAssertion checks the private_key_jwt client authentication of
// a token request against the keys configured via SetClient.
func (p *TestProvider) verifyClientAssertion(req *http.Request) error {
	if req.FormValue("client_assertion_type") != ClientAssertionType {
		return errInvalidAssertion("bad client_assertion_type")
	}
	tok, err := jwt.ParseSigned(req.FormValue("client_assertion"), []jose.SignatureAlgorithm{
		jose.RS256, jose.RS384, jose.RS512, jose.PS256, jose.PS384, jose.PS512, jose.ES256, jose.ES384, jose.ES512,
	})
	if err != nil {
		return errInvalidAssertion("unable to parse client_assertion")
	}
	candidates := p.clientKeys.Keys
	if kid := tok.Headers[0].KeyID; kid != "" {
		candidates = p.clientKeys.Key(kid)
	}
	for _, k := range candidates {
		var claims jwt.Claims
		if err := tok.Claims(k.Key, &claims); err != nil {
			continue
		}
		expected := jwt.Expected{
			Issuer:      p.clientID,
			Subject:     p.clientID,
			AnyAudience: jwt.Audience{p.Addr(), p.Addr() + "/token"},
			Time:        time.Now(),
		}
		if err := claims.Validate(expected); err != nil {
			return errInvalidAssertion("client_assertion claims are invalid: " + err.Error())
		}
		if claims.ID == "" {
			return errInvalidAssertion("client_assertion is missing jti")
		}
		return nil
	}
	return errInvalidAssertion("client_assertion signature is invalid")
}

type errInvalidAssertion string

func (e errInvalidAssertion) Error() string { return string(e) }
