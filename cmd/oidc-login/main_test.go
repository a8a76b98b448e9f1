// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/hashicorp/cap-oidc-login/internal/auth"
	"github.com/hashicorp/cap-oidc-login/internal/config"
	"github.com/hashicorp/cap-oidc-login/internal/keystore"
	"github.com/hashicorp/cap-oidc-login/internal/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the command line against environ and returns its output.
func run(t *testing.T, environ map[string]string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(config.WithEnvironment(environ))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	// an explicit --env-file has to exist
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, nil, 0o600))
	cmd.SetArgs(append(args, "--env-file", envFile))
	err := cmd.Execute()
	return out.String(), err
}

func TestKeygenAndJWKS(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	keyFile := filepath.Join(t.TempDir(), "full_key.jwk")
	environ := map[string]string{"OIDC_KEY_FILE": keyFile}

	out, err := run(t, environ, "keygen", "--kid", "demo-key")
	require.NoError(err)
	assert.Contains(out, `wrote key "demo-key" to `+keyFile)

	ks, err := keystore.Load(keyFile)
	require.NoError(err)
	assert.Equal("demo-key", ks.SigningKey().KeyID)

	// never overwrites
	_, err = run(t, environ, "keygen")
	assert.ErrorIs(err, keystore.ErrKeyFileExists)

	out, err = run(t, environ, "jwks")
	require.NoError(err)
	var set jose.JSONWebKeySet
	require.NoError(json.Unmarshal([]byte(out), &set))
	require.Len(set.Keys, 1)
	assert.Equal("demo-key", set.Keys[0].KeyID)
	assert.True(set.Keys[0].IsPublic())

	other := filepath.Join(t.TempDir(), "other.jwk")
	_, err = run(t, environ, "keygen", "--out", other, "--bits", "1024")
	assert.Error(err)
	_, err = run(t, environ, "keygen", "--out", other, "--bits", "3072")
	require.NoError(err)
	out, err = run(t, environ, "jwks", "--key-file", other)
	require.NoError(err)
	assert.Contains(out, `"kty": "RSA"`)
}

func TestJWKS_MissingKeyFile(t *testing.T) {
	t.Parallel()
	_, err := run(t, map[string]string{"OIDC_KEY_FILE": filepath.Join(t.TempDir(), "nope.jwk")}, "jwks")
	assert.Error(t, err)
}

func TestRoot_EnvFile(t *testing.T) {
	t.Parallel()
	cmd := newRootCmd(config.WithEnvironment(map[string]string{}))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"jwks", "--env-file", filepath.Join(t.TempDir(), "missing.env")})
	assert.Error(t, cmd.Execute())
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Parallel()
	_, err := run(t, map[string]string{}, "serve", "--no-oidc", "--port", "70000")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = run(t, map[string]string{"OIDC_STARTUP_POLICY": "sometimes"}, "serve")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// testConfig is a valid config for a test provider.
func testConfig(t *testing.T, tp *oidc.TestProvider, environ map[string]string) *config.Config {
	t.Helper()
	require := require.New(t)
	dir := t.TempDir()
	caFile := filepath.Join(dir, "ca.pem")
	require.NoError(os.WriteFile(caFile, []byte(tp.CACert()), 0o600))
	base := map[string]string{
		"APP_ENV":        "production",
		"SESSION_SECRET": "test-secret",
		"PUBLIC_DIR":     dir,
		"OIDC_ISSUER":    tp.Addr(),
		"OIDC_CA_FILE":   caFile,
		"OIDC_CLIENT_ID": "test-client",
		"OIDC_KEY_FILE":  filepath.Join(dir, "full_key.jwk"),
	}
	for k, v := range environ {
		base[k] = v
	}
	cfg, err := config.Load(config.WithEnvironment(base))
	require.NoError(err)
	require.NoError(cfg.Validate())
	return cfg
}

// startServe runs serve in the background and returns its base URL and
// result.
func startServe(t *testing.T, cfg *config.Config) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, cfg, hclog.NewNullLogger(), l) }()
	return "http://" + l.Addr().String(), cancel, errCh
}

func readyz(t *testing.T, base string) int {
	resp, err := http.Get(base + "/readyz")
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestServe(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := oidc.StartTestProvider(t)
		cfg := testConfig(t, tp, nil)
		ks, err := keystore.Generate("", keystore.MinRSAKeyBits)
		require.NoError(err)
		require.NoError(ks.WriteFile(cfg.OIDC.KeyFile))

		base, cancel, errCh := startServe(t, cfg)
		assert.Eventually(func() bool { return readyz(t, base) == http.StatusOK }, 10*time.Second, 20*time.Millisecond)

		resp, err := http.Get(base + "/healthz")
		require.NoError(err)
		defer resp.Body.Close()
		var health map[string]string
		require.NoError(json.NewDecoder(resp.Body).Decode(&health))
		assert.Equal(auth.StateReady.String(), health["oidc"])

		cancel()
		select {
		case err := <-errCh:
			assert.NoError(err)
		case <-time.After(10 * time.Second):
			t.Fatal("serve didn't stop")
		}
	})

	t.Run("no-oidc", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		tp := oidc.StartTestProvider(t)
		cfg := testConfig(t, tp, map[string]string{"OIDC_ENABLED": "false"})
		base, cancel, errCh := startServe(t, cfg)
		assert.Eventually(func() bool { return readyz(t, base) == http.StatusOK }, 10*time.Second, 20*time.Millisecond)
		cancel()
		assert.NoError(<-errCh)
	})

	t.Run("missing-key-file-is-fatal", func(t *testing.T) {
		t.Parallel()
		tp := oidc.StartTestProvider(t)
		cfg := testConfig(t, tp, nil)
		_, _, errCh := startServe(t, cfg)
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, auth.ErrKeyStore)
		case <-time.After(10 * time.Second):
			t.Fatal("serve didn't stop")
		}
	})

	t.Run("missing-key-file-with-hanging-issuer", func(t *testing.T) {
		t.Parallel()
		tp := oidc.StartTestProvider(t)
		hang := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		t.Cleanup(hang.Close)
		cfg := testConfig(t, tp, map[string]string{"OIDC_ISSUER": hang.URL})
		_, _, errCh := startServe(t, cfg)
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, auth.ErrKeyStore)
		case <-time.After(10 * time.Second):
			t.Fatal("serve didn't stop")
		}
	})

	discoveryFails := func(t *testing.T, policy string) (string, context.CancelFunc, <-chan error) {
		t.Helper()
		tp := oidc.StartTestProvider(t)
		cfg := testConfig(t, tp, map[string]string{"OIDC_STARTUP_POLICY": policy})
		ks, err := keystore.Generate("", keystore.MinRSAKeyBits)
		require.NoError(t, err)
		require.NoError(t, ks.WriteFile(cfg.OIDC.KeyFile))
		tp.Stop()
		return startServe(t, cfg)
	}

	t.Run("discovery-fails-degrade", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		base, cancel, errCh := discoveryFails(t, config.PolicyDegrade)
		assert.Eventually(func() bool {
			resp, err := http.Get(base + "/healthz")
			if err != nil {
				return false
			}
			defer resp.Body.Close()
			var health map[string]string
			_ = json.NewDecoder(resp.Body).Decode(&health)
			return health["oidc"] == auth.StateFailed.String()
		}, 10*time.Second, 20*time.Millisecond)
		assert.Equal(http.StatusServiceUnavailable, readyz(t, base))

		resp, err := http.Get(base + "/")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(http.StatusOK, resp.StatusCode)

		cancel()
		assert.NoError(<-errCh)
	})

	t.Run("discovery-fails-fail", func(t *testing.T) {
		t.Parallel()
		_, _, errCh := discoveryFails(t, config.PolicyFail)
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, auth.ErrDiscovery)
		case <-time.After(10 * time.Second):
			t.Fatal("serve didn't stop")
		}
	})
}
