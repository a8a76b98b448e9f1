// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashicorp/cap-oidc-login/internal/auth"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Middleware(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/implicit":
			_, _ = io.WriteString(w, "ok")
		case "/silent":
		}
	}))
	for _, p := range []string{"/missing", "/implicit", "/silent", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/implicit", nil))

	assert.Equal(2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "404")))
	assert.Equal(2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "200")))
	assert.Equal(1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "200")))
	assert.Equal(2, testutil.CollectAndCount(m.duration))
}

func TestMetrics_BootstrapState(t *testing.T) {
	t.Parallel()
	tests := []struct {
		state auth.State
		want  float64
	}{
		{auth.StatePending, 0},
		{auth.StateReady, 1},
		{auth.StateFailed, 2},
		{auth.StateDisabled, 3},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			t.Parallel()
			m := New()
			m.BootstrapState(tt.state)
			assert.Equal(t, tt.want, testutil.ToFloat64(m.bootstrapState))
		})
	}

	t.Run("observer", func(t *testing.T) {
		t.Parallel()
		m := New()
		_ = auth.NewDisabledBootstrap(auth.WithStateObserver(m.BootstrapState))
		assert.Equal(t, 3.0, testutil.ToFloat64(m.bootstrapState))
	})
}

func TestMetrics_LoginOutcome(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	m := New()
	m.LoginOutcome(auth.OIDCStrategyName, auth.OutcomeRedirect)
	m.LoginOutcome(auth.OIDCStrategyName, auth.OutcomeSuccess)
	m.LoginOutcome(auth.OIDCStrategyName, auth.OutcomeFail)
	m.LoginOutcome(auth.OIDCStrategyName, auth.OutcomeRedirect)

	assert.Equal(2.0, testutil.ToFloat64(m.logins.WithLabelValues("redirect")))
	assert.Equal(1.0, testutil.ToFloat64(m.logins.WithLabelValues("success")))
	assert.Equal(1.0, testutil.ToFloat64(m.logins.WithLabelValues("fail")))

	expected := `
# HELP oidc_logins_total Authentication attempts by outcome.
# TYPE oidc_logins_total counter
oidc_logins_total{outcome="fail"} 1
oidc_logins_total{outcome="redirect"} 2
oidc_logins_total{outcome="success"} 1
`
	assert.NoError(testutil.CollectAndCompare(m.logins, strings.NewReader(expected)))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	m := New()
	m.BootstrapState(auth.StateReady)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(body, "oidc_bootstrap_state 1")
	assert.Contains(body, "go_goroutines")
	// vectors without observations aren't exposed
	assert.NotContains(body, "oidc_logins_total")
}
