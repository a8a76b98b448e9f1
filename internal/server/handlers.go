// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/cap-oidc-login/internal/auth"
)

func (s *Server) index(w http.ResponseWriter, r *http.Request) error {
	return s.views.render(w, http.StatusOK, viewIndex, s.data(r))
}

func (s *Server) users(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := io.WriteString(w, "respond with a resource")
	return err
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) error {
	const op = "Server.me"
	data := s.data(r)
	if data.Principal == nil {
		return fmt.Errorf("%s: no principal: %w", op, ErrInvalidParameter)
	}
	data.Claims = claimsOf(data.Principal)
	return s.views.render(w, http.StatusOK, viewUser, data)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) error {
	if err := s.auth.Logout(r); err != nil {
		return err
	}
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

type healthResponse struct {
	Status string `json:"status"`
	OIDC   string `json:"oidc"`
}

// healthz is always 200 while the process serves requests.
func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", OIDC: s.bootstrap.State().String()})
}

// readyz is 503 until login works, or forever if OIDC setup failed.
func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	state := s.bootstrap.State()
	switch state {
	case auth.StateReady, auth.StateDisabled:
		writeJSON(w, http.StatusOK, healthResponse{Status: "ready", OIDC: state.String()})
	default:
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", OIDC: state.String()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
