// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"time"

	"golang.org/x/oauth2"
)

// IDToken is an oidc id_token
type IDToken string

// RedactedIDToken is the redacted string or json for an oidc id_token
const RedactedIDToken = "[REDACTED: id_token]"

// String will redact the token
func (t IDToken) String() string {
	return RedactedIDToken
}

// MarshalJSON will redact the token
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIDToken)
}

// AccessToken is an oauth access_token
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth
// access_token
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// RefreshToken is an oauth refresh_token
type RefreshToken string

// RedactedRefreshToken is the redacted string or json for an oauth
// refresh_token
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// MarshalJSON will redact the token
func (t RefreshToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedRefreshToken)
}

// TokenSet is the result of a successful authorization code exchange.  The
// id_token has been verified before a TokenSet is returned.
type TokenSet struct {
	IDToken      IDToken        `json:"id_token"`
	AccessToken  AccessToken    `json:"access_token"`
	RefreshToken RefreshToken   `json:"refresh_token,omitempty"`
	TokenType    string         `json:"token_type,omitempty"`
	Expiry       time.Time      `json:"expiry,omitempty"`
	Claims       map[string]any `json:"claims"`
}

// Subject returns the id_token's "sub" claim
func (t *TokenSet) Subject() string {
	if t == nil {
		return ""
	}
	sub, _ := t.Claims["sub"].(string)
	return sub
}

// IsExpired returns true if the access_token has an expiry that has passed.
func (t *TokenSet) IsExpired() bool {
	if t == nil || t.Expiry.IsZero() {
		return false
	}
	return t.Expiry.Before(time.Now())
}

// StaticTokenSource returns a token source for the set's access_token, which
// is what the userinfo endpoint requires.
func (t *TokenSet) StaticTokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: string(t.AccessToken),
		TokenType:   t.TokenType,
		Expiry:      t.Expiry,
	})
}
