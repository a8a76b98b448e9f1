// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/cap-oidc-login/internal/auth"
	"github.com/hashicorp/cap-oidc-login/internal/config"
	"github.com/hashicorp/cap-oidc-login/internal/metrics"
	"github.com/hashicorp/cap-oidc-login/internal/server"
	"github.com/hashicorp/cap-oidc-login/internal/session"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *app) newServeCmd() *cobra.Command {
	var (
		noOIDC bool
		port   int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `Runs the web server.  Unless OIDC is disabled, the key file is loaded and
the issuer discovered in the background while the server starts, and login
becomes available once both are done.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if noOIDC {
				cfg.OIDC.Enabled = false
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			l, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
			if err != nil {
				return err
			}
			return serve(ctx, cfg, cfg.Logger("oidc-login"), l)
		},
	}
	cmd.Flags().BoolVar(&noOIDC, "no-oidc", false, "serve without OIDC login (env: OIDC_ENABLED=false)")
	cmd.Flags().IntVar(&port, "port", 3000, "port to listen on (env: PORT)")
	return cmd
}

// serve runs the server on l and the OIDC bootstrap until ctx is done.  A
// key store error always stops the server; a discovery error only does
// with the fail startup policy.
func serve(ctx context.Context, cfg *config.Config, logger hclog.Logger, l net.Listener) error {
	if cfg.UsesDefaultSecret() {
		logger.Warn("SESSION_SECRET is not set, session cookies are signed with a well-known secret")
	}

	store, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		_ = l.Close()
		return err
	}
	defer closeStore()
	sessions, err := session.NewManager(store, cfg.SessionSecret,
		session.WithTTL(cfg.SessionTTL),
		session.WithSecureCookie(cfg.SecureCookie),
		session.WithLogger(logger.Named("session")),
	)
	if err != nil {
		_ = l.Close()
		return err
	}

	m := metrics.New()
	authenticator := auth.NewAuthenticator(
		auth.WithLogger(logger.Named("auth")),
		auth.WithOutcomeObserver(m.LoginOutcome),
	)
	bootstrap, callbackPath, err := newBootstrap(cfg, logger, authenticator, m)
	if err != nil {
		_ = l.Close()
		return err
	}

	srv, err := server.NewServer(sessions, authenticator, bootstrap,
		server.WithLogger(logger.Named("http")),
		server.WithMetrics(m),
		server.WithPublicDir(cfg.PublicDir),
		server.WithDevelopment(cfg.IsDevelopment()),
		server.WithCallbackPath(callbackPath),
	)
	if err != nil {
		_ = l.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, l)
	})
	if cfg.OIDC.Enabled {
		g.Go(func() error {
			err := bootstrap.Run(gctx)
			switch {
			case err == nil, gctx.Err() != nil:
				return nil
			case errors.Is(err, auth.ErrKeyStore), cfg.OIDC.FailFast():
				return err
			default:
				logger.Error("Error in OIDC setup, serving without login", "error", err)
				return nil
			}
		})
	}
	return g.Wait()
}

// newBootstrap returns the OIDC bootstrap, or a disabled one, and the
// callback path.
func newBootstrap(cfg *config.Config, logger hclog.Logger, a *auth.Authenticator, m *metrics.Metrics) (*auth.Bootstrap, string, error) {
	if !cfg.OIDC.Enabled {
		logger.Info("OIDC is disabled")
		return auth.NewDisabledBootstrap(auth.WithStateObserver(m.BootstrapState)), server.DefaultCallbackPath, nil
	}
	pc, err := cfg.OIDC.ProviderConfig()
	if err != nil {
		return nil, "", err
	}
	locales, err := cfg.OIDC.Locales()
	if err != nil {
		return nil, "", err
	}
	u, err := url.Parse(cfg.OIDC.RedirectURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	b, err := auth.NewBootstrap(a,
		auth.KeyFileLoader(cfg.OIDC.KeyFile),
		auth.IssuerDiscoverer(pc),
		auth.OIDCStrategyFactory(logger.Named("oidc"), cfg.OIDC.ClientID, cfg.OIDC.RedirectURL,
			auth.WithScopes(cfg.OIDC.Scopes...),
			auth.WithUILocales(locales...),
			auth.WithUserInfo(cfg.OIDC.UserInfo),
		),
		auth.WithLogger(logger.Named("bootstrap")),
		auth.WithDiscoveryTimeout(cfg.OIDC.DiscoveryTimeout),
		auth.WithStateObserver(m.BootstrapState),
	)
	if err != nil {
		return nil, "", err
	}
	return b, u.Path, nil
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		s, err := session.DialRedisStore(ctx, cfg.RedisAddr, session.WithTTL(cfg.SessionTTL))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return session.NewMemoryStore(session.WithTTL(cfg.SessionTTL)), func() {}, nil
	}
}
