// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"context"
	"fmt"
	"maps"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Principal is the authenticated user, built from the provider's userinfo
// claims.  The well known claims are decoded into fields and validated; every
// claim is also kept verbatim in Claims.
type Principal struct {
	Subject           string         `json:"sub" mapstructure:"sub" validate:"required,max=255"`
	Name              string         `json:"name,omitempty" mapstructure:"name"`
	GivenName         string         `json:"given_name,omitempty" mapstructure:"given_name"`
	FamilyName        string         `json:"family_name,omitempty" mapstructure:"family_name"`
	PreferredUsername string         `json:"preferred_username,omitempty" mapstructure:"preferred_username"`
	Email             string         `json:"email,omitempty" mapstructure:"email" validate:"omitempty,email"`
	EmailVerified     bool           `json:"email_verified,omitempty" mapstructure:"email_verified"`
	PhoneNumber       string         `json:"phone_number,omitempty" mapstructure:"phone_number"`
	Locale            string         `json:"locale,omitempty" mapstructure:"locale" validate:"omitempty,bcp47_language_tag"`
	Address           map[string]any `json:"address,omitempty" mapstructure:"address"`
	Claims            map[string]any `json:"claims,omitempty" mapstructure:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewPrincipal decodes and validates userinfo claims.  Claims that don't
// match a field's type (a "true" string for email_verified, say) are
// converted where that's unambiguous.
func NewPrincipal(claims map[string]any) (*Principal, error) {
	const op = "auth.NewPrincipal"
	if claims == nil {
		return nil, fmt.Errorf("%s: claims are nil: %w", op, ErrNilParameter)
	}
	var p Principal
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := dec.Decode(claims); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidPrincipal, err)
	}
	p.Claims = maps.Clone(claims)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// Validate checks the principal's fields.
func (p *Principal) Validate() error {
	const op = "Principal.Validate"
	if p == nil {
		return fmt.Errorf("%s: principal is nil: %w", op, ErrNilParameter)
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidPrincipal, err)
	}
	return nil
}

// DisplayName is the name to greet the user with.
func (p *Principal) DisplayName() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.PreferredUsername != "":
		return p.PreferredUsername
	case p.Email != "":
		return p.Email
	default:
		return p.Subject
	}
}

type principalCtxKey struct{}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext returns the logged in principal, which the
// Authenticator's Initialize middleware attaches.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(*Principal)
	return p, ok && p != nil
}
