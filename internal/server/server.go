// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/cap-oidc-login/internal/auth"
	"github.com/hashicorp/cap-oidc-login/internal/session"
	"github.com/hashicorp/go-hclog"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// handlerFunc is a handler which returns its error to the error handler.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// Server is the login demo's http.Handler.
type Server struct {
	sessions  *session.Manager
	auth      *auth.Authenticator
	bootstrap *auth.Bootstrap
	logger    hclog.Logger
	views     views
	opts      serverOptions
	router    chi.Router
}

var _ http.Handler = (*Server)(nil)

// NewServer creates a Server.  The authentication routes are mounted unless
// the bootstrap is disabled.
//
// Supported options:
//   - WithLogger
//   - WithMetrics
//   - WithPublicDir
//   - WithDevelopment
//   - WithBodyLimit
//   - WithCallbackPath
//   - WithTitle
func NewServer(sessions *session.Manager, a *auth.Authenticator, b *auth.Bootstrap, opt ...Option) (*Server, error) {
	const op = "server.NewServer"
	switch {
	case sessions == nil:
		return nil, fmt.Errorf("%s: session manager is nil: %w", op, ErrNilParameter)
	case a == nil:
		return nil, fmt.Errorf("%s: authenticator is nil: %w", op, ErrNilParameter)
	case b == nil:
		return nil, fmt.Errorf("%s: bootstrap is nil: %w", op, ErrNilParameter)
	}
	opts := getServerOpts(opt...)
	v, err := parseViews()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s := &Server{
		sessions:  sessions,
		auth:      a,
		bootstrap: b,
		logger:    opts.withLogger,
		views:     v,
		opts:      opts,
	}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	if m := s.opts.withMetrics; m != nil {
		r.Use(m.Middleware)
	}
	r.Use(s.recoverer)
	r.Use(s.bodyParser)
	r.Use(s.static)

	r.Use(s.sessions.Middleware)
	r.Use(s.auth.Initialize)

	// a known path with the wrong method is unmatched too
	notFound := s.handle(func(http.ResponseWriter, *http.Request) error {
		return NotFound()
	})
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	if m := s.opts.withMetrics; m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Get("/", s.handle(s.index))
	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.handle(s.users))
		r.With(s.requireLogin).Get("/me", s.handle(s.me))
	})

	if s.loginEnabled() {
		login := s.auth.Authenticate(auth.OIDCStrategyName, auth.Options{
			SuccessRedirect: "/users/me",
			FailureRedirect: "/",
		})
		r.Get("/login", s.handle(s.whenReady(login)))
		r.Get(s.opts.withCallbackPath, s.handle(s.whenReady(login)))
		r.Get("/logout", s.handle(s.logout))
	}

	return r
}

func (s *Server) loginEnabled() bool {
	return s.bootstrap.State() != auth.StateDisabled
}

// requireLogin sends anonymous requests to the login route, or answers 401
// when there's no login route to send them to.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	withLogin := s.auth.RequireLogin(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.loginEnabled() {
			withLogin.ServeHTTP(w, r)
			return
		}
		if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
			s.renderError(w, r, NewHTTPError(http.StatusUnauthorized, "Login is disabled on this server", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handle adapts h, sending its error to the error handler.
func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.renderError(w, r, err)
		}
	}
}

// whenReady answers 503 until the strategy is registered.
func (s *Server) whenReady(next auth.HandlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		switch s.bootstrap.State() {
		case auth.StateReady:
			return next(w, r)
		case auth.StatePending:
			w.Header().Set("Retry-After", "5")
			return NewHTTPError(http.StatusServiceUnavailable,
				"Login isn't available yet: the OIDC provider is still being discovered", nil)
		default:
			return NewHTTPError(http.StatusServiceUnavailable,
				"Login is unavailable: OIDC setup failed", s.bootstrap.Err())
		}
	}
}

// renderError is the terminal error handler.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request failed", "path", r.URL.Path, "status", status, "error", err)
	}

	data := s.data(r)
	data.Status = status
	data.Message = http.StatusText(status)
	var he *HTTPError
	if errors.As(err, &he) && he.Message != "" {
		data.Message = he.Message
	}
	if s.opts.withDevelopment {
		data.Detail = fmt.Sprintf("%+v", err)
	}
	if err := s.views.render(w, status, viewError, data); err != nil {
		s.logger.Error("unable to render error page", "error", err)
		http.Error(w, data.Message, status)
	}
}

func (s *Server) data(r *http.Request) viewData {
	p, _ := auth.PrincipalFromContext(r.Context())
	return viewData{
		Title:        s.opts.withTitle,
		Principal:    p,
		LoginEnabled: s.loginEnabled(),
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	const op = "Server.ListenAndServe"
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.Serve(ctx, l)
}

// Serve serves on l until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	const op = "Server.Serve"
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          s.logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", l.Addr().String())
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s: %w", op, err)
	case <-ctx.Done():
	}
	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
