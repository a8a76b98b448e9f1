// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/hashicorp/cap-oidc-login/internal/session"
	"github.com/hashicorp/go-hclog"
)

// SessionKey is the session key the logged in principal is stored under.
const SessionKey = "passport.user"

// Outcome is how a strategy finished.
type Outcome int

const (
	// OutcomeSuccess means the request authenticated a principal.
	OutcomeSuccess Outcome = iota
	// OutcomeFail means authentication was refused.
	OutcomeFail
	// OutcomeRedirect means the browser is sent elsewhere to continue, e.g.
	// to an OIDC provider.
	OutcomeRedirect
)

// String returns the outcome's name
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFail:
		return "fail"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Result of a Strategy.
type Result struct {
	Outcome Outcome

	// Principal is set for OutcomeSuccess
	Principal *Principal

	// Location is set for OutcomeRedirect
	Location string

	// Reason is set for OutcomeFail.  It's logged, never shown to the user.
	Reason string
}

// Strategy authenticates a request.  An error means the strategy couldn't
// run at all; refusing a login is a Result with OutcomeFail.
type Strategy interface {
	Authenticate(w http.ResponseWriter, r *http.Request) (Result, error)
}

// SerializeFunc converts a principal to the value stored in the session.
type SerializeFunc func(ctx context.Context, p *Principal) (any, error)

// DeserializeFunc restores a principal from the stored session value.
type DeserializeFunc func(ctx context.Context, raw json.RawMessage) (*Principal, error)

// IdentitySerializer stores the principal itself.
func IdentitySerializer(_ context.Context, p *Principal) (any, error) {
	return p, nil
}

// IdentityDeserializer restores a principal stored by IdentitySerializer.
func IdentityDeserializer(_ context.Context, raw json.RawMessage) (*Principal, error) {
	const op = "auth.IdentityDeserializer"
	var p Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidPrincipal, err)
	}
	return &p, nil
}

// HandlerFunc is an http handler which returns its error rather than writing
// it.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Options for Authenticate.
type Options struct {
	// SuccessRedirect is where the browser goes after a successful login.
	// Defaults to "/".
	SuccessRedirect string

	// FailureRedirect is where the browser goes after a refused login.  When
	// empty a refused login is a 401.
	FailureRedirect string
}

// Authenticator is a registry of strategies plus the session handling for
// logged in principals.  Strategies may be registered while requests are
// being served.
type Authenticator struct {
	mu         sync.RWMutex
	strategies map[string]Strategy

	logger      hclog.Logger
	loginPath   string
	serialize   SerializeFunc
	deserialize DeserializeFunc
	observe     func(string, Outcome)
}

// NewAuthenticator creates an Authenticator with no strategies.
//
// Supported options:
//   - WithLogger
//   - WithLoginPath
//   - WithSerializer
//   - WithDeserializer
//   - WithOutcomeObserver
func NewAuthenticator(opt ...Option) *Authenticator {
	opts := getAuthenticatorOpts(opt...)
	return &Authenticator{
		strategies:  map[string]Strategy{},
		logger:      opts.withLogger,
		loginPath:   opts.withLoginPath,
		serialize:   opts.withSerializer,
		deserialize: opts.withDeserializer,
		observe:     opts.withOutcomeObserver,
	}
}

// Use registers s under name, replacing any strategy already registered
// under it.
func (a *Authenticator) Use(name string, s Strategy) error {
	const op = "Authenticator.Use"
	switch {
	case name == "":
		return fmt.Errorf("%s: name is empty: %w", op, ErrInvalidParameter)
	case s == nil:
		return fmt.Errorf("%s: strategy is nil: %w", op, ErrNilParameter)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.strategies[name] = s
	a.logger.Debug("registered strategy", "name", name)
	return nil
}

// Strategy returns the strategy registered under name.
func (a *Authenticator) Strategy(name string) (Strategy, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.strategies[name]
	return s, ok
}

// Strategies returns the sorted names of the registered strategies.
func (a *Authenticator) Strategies() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.strategies))
	for n := range a.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Initialize restores the logged in principal from the session and attaches
// it to the request context.  A stored principal which can't be restored is
// removed from the session.
func (a *Authenticator) Initialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := session.FromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		var raw json.RawMessage
		found, err := s.Get(SessionKey, &raw)
		if err != nil || !found {
			next.ServeHTTP(w, r)
			return
		}
		p, err := a.deserialize(r.Context(), raw)
		if err != nil {
			a.logger.Warn("dropping principal that could not be restored from session", "error", err)
			s.Delete(SessionKey)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), p)))
	})
}

// Authenticate returns a handler which runs the named strategy.  The
// strategy is looked up per request, so the handler can be mounted before the
// strategy is registered.
func (a *Authenticator) Authenticate(name string, opts Options) HandlerFunc {
	if opts.SuccessRedirect == "" {
		opts.SuccessRedirect = "/"
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		const op = "Authenticator.Authenticate"
		s, ok := a.Strategy(name)
		if !ok {
			return fmt.Errorf("%s: %q: %w", op, name, ErrUnknownStrategy)
		}
		res, err := s.Authenticate(w, r)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", op, name, err)
		}
		if a.observe != nil {
			a.observe(name, res.Outcome)
		}
		switch res.Outcome {
		case OutcomeRedirect:
			http.Redirect(w, r, res.Location, http.StatusFound)
			return nil
		case OutcomeFail:
			a.logger.Warn("authentication failed", "strategy", name, "reason", res.Reason)
			if opts.FailureRedirect == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return nil
			}
			http.Redirect(w, r, opts.FailureRedirect, http.StatusFound)
			return nil
		case OutcomeSuccess:
			if err := a.Login(r, res.Principal); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			a.logger.Info("logged in", "strategy", name, "sub", res.Principal.Subject)
			http.Redirect(w, r, opts.SuccessRedirect, http.StatusFound)
			return nil
		default:
			return fmt.Errorf("%s: %s: unknown outcome %d: %w", op, name, res.Outcome, ErrInvalidParameter)
		}
	}
}

// Login stores p in a regenerated session.
func (a *Authenticator) Login(r *http.Request, p *Principal) error {
	const op = "Authenticator.Login"
	if p == nil {
		return fmt.Errorf("%s: principal is nil: %w", op, ErrNilParameter)
	}
	s, ok := session.FromContext(r.Context())
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	v, err := a.serialize(r.Context(), p)
	if err != nil {
		return fmt.Errorf("%s: unable to serialize principal: %w", op, err)
	}
	if err := s.Regenerate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.Set(SessionKey, v); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Logout destroys the request's session.
func (a *Authenticator) Logout(r *http.Request) error {
	const op = "Authenticator.Logout"
	s, ok := session.FromContext(r.Context())
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	s.Destroy()
	return nil
}

// RequireLogin redirects anonymous requests to the login path.
func (a *Authenticator) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			http.Redirect(w, r, a.loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
