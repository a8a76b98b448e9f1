// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/cap-oidc-login/internal/keystore"
	"github.com/hashicorp/cap-oidc-login/internal/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// State of a Bootstrap.
type State int32

const (
	// StatePending means the keys or the issuer are still loading.
	StatePending State = iota
	// StateReady means the strategy is registered.
	StateReady
	// StateFailed means the strategy will never be registered.
	StateFailed
	// StateDisabled means OIDC isn't configured for this server.
	StateDisabled
)

// String returns the state's name
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

type (
	// KeyLoader loads the relying party's keys.
	KeyLoader func(ctx context.Context) (*keystore.KeyStore, error)

	// Discoverer discovers the issuer.
	Discoverer func(ctx context.Context) (*oidc.Issuer, error)

	// StrategyFactory builds the strategy once keys and issuer are known.
	StrategyFactory func(ks *keystore.KeyStore, iss *oidc.Issuer) (Strategy, error)
)

// Bootstrap loads the key store and discovers the issuer concurrently, then
// registers the strategy built from both with an Authenticator.  The
// strategy is never registered if either fails.
type Bootstrap struct {
	auth     *Authenticator
	loadKeys KeyLoader
	discover Discoverer
	build    StrategyFactory
	opts     bootstrapOptions
	logger   hclog.Logger

	started sync.Once
	done    chan struct{}

	mu    sync.RWMutex
	state State
	err   error
}

// NewBootstrap creates a pending Bootstrap.
//
// Supported options:
//   - WithLogger
//   - WithStrategyName
//   - WithDiscoveryTimeout
//   - WithStateObserver
func NewBootstrap(a *Authenticator, loadKeys KeyLoader, discover Discoverer, build StrategyFactory, opt ...Option) (*Bootstrap, error) {
	const op = "auth.NewBootstrap"
	switch {
	case a == nil:
		return nil, fmt.Errorf("%s: authenticator is nil: %w", op, ErrNilParameter)
	case loadKeys == nil:
		return nil, fmt.Errorf("%s: key loader is nil: %w", op, ErrNilParameter)
	case discover == nil:
		return nil, fmt.Errorf("%s: discoverer is nil: %w", op, ErrNilParameter)
	case build == nil:
		return nil, fmt.Errorf("%s: strategy factory is nil: %w", op, ErrNilParameter)
	}
	opts := getBootstrapOpts(opt...)
	b := &Bootstrap{
		auth:     a,
		loadKeys: loadKeys,
		discover: discover,
		build:    build,
		opts:     opts,
		logger:   opts.withLogger,
		done:     make(chan struct{}),
		state:    StatePending,
	}
	b.notify(StatePending)
	return b, nil
}

// NewDisabledBootstrap returns a Bootstrap for a server without OIDC.  It's
// already done and never registers anything.
func NewDisabledBootstrap(opt ...Option) *Bootstrap {
	opts := getBootstrapOpts(opt...)
	b := &Bootstrap{
		opts:   opts,
		logger: opts.withLogger,
		done:   make(chan struct{}),
		state:  StateDisabled,
	}
	b.started.Do(func() { close(b.done) })
	b.notify(StateDisabled)
	return b
}

// Start runs the bootstrap in the background.
func (b *Bootstrap) Start(ctx context.Context) {
	go func() { _ = b.Run(ctx) }()
}

// Run loads the keys and discovers the issuer concurrently and waits for
// both.  When both succeed it registers the strategy.  Run only does its
// work once; later calls return ErrBootstrapStarted.
func (b *Bootstrap) Run(ctx context.Context) error {
	const op = "Bootstrap.Run"
	err := fmt.Errorf("%s: %w", op, ErrBootstrapStarted)
	b.started.Do(func() {
		defer close(b.done)
		err = b.run(ctx)
		if err != nil {
			b.finish(StateFailed, err)
			return
		}
		b.finish(StateReady, nil)
	})
	return err
}

func (b *Bootstrap) run(ctx context.Context) error {
	const op = "Bootstrap.run"
	var (
		wg      sync.WaitGroup
		ks      *keystore.KeyStore
		iss     *oidc.Issuer
		keyErr  error
		discErr error
	)
	// discovery is abandoned once the key store fails
	dctx, cancelDiscovery := context.WithCancel(ctx)
	defer cancelDiscovery()

	wg.Add(2)
	go func() {
		defer wg.Done()
		ks, keyErr = b.loadKeys(ctx)
		if keyErr != nil {
			cancelDiscovery()
		}
	}()
	go func() {
		defer wg.Done()
		dctx := dctx
		if t := b.opts.withDiscoveryTimeout; t > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(dctx, t)
			defer cancel()
		}
		iss, discErr = b.discover(dctx)
	}()
	wg.Wait()
	if keyErr != nil && ctx.Err() == nil && errors.Is(discErr, context.Canceled) {
		discErr = nil
	}

	var merr *multierror.Error
	if keyErr != nil {
		merr = multierror.Append(merr, fmt.Errorf("%w: %w", ErrKeyStore, keyErr))
	}
	if discErr != nil {
		merr = multierror.Append(merr, fmt.Errorf("%w: %w", ErrDiscovery, discErr))
	}
	if err := merr.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	md := iss.Metadata()
	b.logger.Info("Found Issuer", "issuer", md.Issuer,
		"authorization_endpoint", md.AuthorizationEndpoint,
		"token_endpoint", md.TokenEndpoint,
		"userinfo_endpoint", md.UserInfoEndpoint,
		"jwks_uri", md.JWKSURI,
	)

	s, err := b.build(ks, iss)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStrategy, err)
	}
	if err := b.auth.Use(b.opts.withStrategyName, s); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStrategy, err)
	}
	b.logger.Info("registered strategy", "name", b.opts.withStrategyName)
	return nil
}

func (b *Bootstrap) finish(s State, err error) {
	b.mu.Lock()
	b.state = s
	b.err = err
	b.mu.Unlock()
	if err != nil {
		b.logger.Error("oidc bootstrap failed", "error", err)
	}
	b.notify(s)
}

func (b *Bootstrap) notify(s State) {
	if b.opts.withStateObserver != nil {
		b.opts.withStateObserver(s)
	}
}

// State returns the current state.
func (b *Bootstrap) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Err returns why the bootstrap failed, or nil.
func (b *Bootstrap) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// Done is closed once the bootstrap has finished, successfully or not.
func (b *Bootstrap) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the bootstrap finishes or ctx is done, and returns the
// final State.
func (b *Bootstrap) Wait(ctx context.Context) (State, error) {
	select {
	case <-b.done:
		return b.State(), b.Err()
	case <-ctx.Done():
		return b.State(), ctx.Err()
	}
}
