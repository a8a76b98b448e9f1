// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/cap-oidc-login/internal/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		c, err := Load(WithEnvironment(map[string]string{}))
		require.NoError(err)
		assert.Equal(EnvDevelopment, c.AppEnv)
		assert.Equal(3000, c.Port)
		assert.Equal("public", c.PublicDir)
		assert.Equal(DefaultSessionSecret, c.SessionSecret)
		assert.Equal(StoreMemory, c.SessionStore)
		assert.Equal(24*time.Hour, c.SessionTTL)
		assert.True(c.OIDC.Enabled)
		assert.Equal("https://mitreid.org/", c.OIDC.Issuer)
		assert.Equal("login-nodejs-govt-test", c.OIDC.ClientID)
		assert.Equal("http://localhost:3000/openid-connect-login", c.OIDC.RedirectURL)
		assert.Equal([]string{"openid", "profile", "email", "phone", "address"}, c.OIDC.Scopes)
		assert.Equal("./full_key.jwk", c.OIDC.KeyFile)
		assert.True(c.OIDC.UserInfo)
		assert.Equal(PolicyDegrade, c.OIDC.StartupPolicy)
		assert.False(c.OIDC.FailFast())
		assert.Zero(c.OIDC.DiscoveryTimeout)
		assert.True(c.IsDevelopment())
		assert.True(c.UsesDefaultSecret())
		assert.NoError(c.Validate())
	})

	t.Run("environment", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		c, err := Load(WithEnvironment(map[string]string{
			"APP_ENV":                "production",
			"PORT":                   "8080",
			"SESSION_SECRET":         "s3cr3t",
			"SESSION_STORE":          "redis",
			"REDIS_ADDR":             "redis:6379",
			"OIDC_ISSUER":            "https://idp.example.com/",
			"OIDC_SCOPES":            "openid email",
			"OIDC_UI_LOCALES":        "fr-CA en",
			"OIDC_STARTUP_POLICY":    "fail",
			"OIDC_DISCOVERY_TIMEOUT": "5s",
			"OIDC_USERINFO":          "false",
		}))
		require.NoError(err)
		require.NoError(c.Validate())
		assert.False(c.IsDevelopment())
		assert.False(c.UsesDefaultSecret())
		assert.Equal(8080, c.Port)
		assert.Equal(StoreRedis, c.SessionStore)
		assert.Equal("redis:6379", c.RedisAddr)
		assert.Equal("https://idp.example.com/", c.OIDC.Issuer)
		assert.Equal([]string{"openid", "email"}, c.OIDC.Scopes)
		assert.True(c.OIDC.FailFast())
		assert.Equal(5*time.Second, c.OIDC.DiscoveryTimeout)
		assert.False(c.OIDC.UserInfo)

		tags, err := c.OIDC.Locales()
		require.NoError(err)
		require.Len(tags, 2)
		assert.Equal("fr-CA", tags[0].String())
		assert.Equal("en", tags[1].String())
	})

	t.Run("env-file", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(os.WriteFile(path, []byte("PORT=4000\nOIDC_CLIENT_ID=from-file\n# comment\nLOG_LEVEL=debug\n"), 0o600))

		environ := map[string]string{"PORT": "5000"}
		c, err := Load(WithEnvironment(environ), WithEnvFile(path))
		require.NoError(err)
		assert.Equal(5000, c.Port, "environment wins over the file")
		assert.Equal("from-file", c.OIDC.ClientID)
		assert.Equal("debug", c.LogLevel)
		assert.Equal(map[string]string{"PORT": "5000"}, environ, "the caller's map is left alone")
	})

	t.Run("missing-env-file", func(t *testing.T) {
		t.Parallel()
		c, err := Load(WithEnvironment(map[string]string{}), WithEnvFile(filepath.Join(t.TempDir(), ".env")))
		require.NoError(t, err)
		assert.Equal(t, 3000, c.Port)
	})

	t.Run("bad-env-file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(WithEnvironment(map[string]string{}), WithEnvFile(t.TempDir()))
		assert.ErrorIs(t, err, ErrEnvFile)
	})

	t.Run("bad-value", func(t *testing.T) {
		t.Parallel()
		_, err := Load(WithEnvironment(map[string]string{"PORT": "three thousand"}))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad-app-env", mutate: func(c *Config) { c.AppEnv = "staging" }, wantErr: true},
		{name: "bad-port", mutate: func(c *Config) { c.Port = 70000 }, wantErr: true},
		{name: "bad-log-level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "empty-secret", mutate: func(c *Config) { c.SessionSecret = "" }, wantErr: true},
		{name: "bad-store", mutate: func(c *Config) { c.SessionStore = "memcached" }, wantErr: true},
		{name: "redis-without-addr", mutate: func(c *Config) { c.SessionStore, c.RedisAddr = StoreRedis, "" }, wantErr: true},
		{name: "memory-without-redis-addr", mutate: func(c *Config) { c.RedisAddr = "" }},
		{name: "zero-ttl", mutate: func(c *Config) { c.SessionTTL = 0 }, wantErr: true},
		{name: "bad-issuer", mutate: func(c *Config) { c.OIDC.Issuer = "not a url" }, wantErr: true},
		{name: "missing-client-id", mutate: func(c *Config) { c.OIDC.ClientID = "" }, wantErr: true},
		{name: "disabled-without-client-id", mutate: func(c *Config) { c.OIDC.Enabled, c.OIDC.ClientID = false, "" }},
		{name: "empty-scope", mutate: func(c *Config) { c.OIDC.Scopes = []string{"openid", ""} }, wantErr: true},
		{name: "bad-locale", mutate: func(c *Config) { c.OIDC.UILocales = []string{"en", "not_a_tag!"} }, wantErr: true},
		{name: "bad-policy", mutate: func(c *Config) { c.OIDC.StartupPolicy = "panic" }, wantErr: true},
		{name: "negative-timeout", mutate: func(c *Config) { c.OIDC.DiscoveryTimeout = -time.Second }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := Load(WithEnvironment(map[string]string{}))
			require.NoError(t, err)
			tt.mutate(c)
			err = c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestOIDCConfig_ProviderConfig(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ca := oidc.TestGenerateCA(t, []string{"localhost"})
	caFile := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(os.WriteFile(caFile, []byte(ca), 0o600))

	pc, err := OIDCConfig{Issuer: "https://idp.example.com/", CAFile: caFile}.ProviderConfig()
	require.NoError(err)
	assert.Equal("https://idp.example.com/", pc.Issuer)
	assert.Equal(ca, pc.ProviderCA)

	_, err = OIDCConfig{Issuer: "https://idp.example.com/", CAFile: filepath.Join(t.TempDir(), "missing.pem")}.ProviderConfig()
	assert.Error(err)

	_, err = OIDCConfig{Issuer: ""}.ProviderConfig()
	assert.ErrorIs(err, oidc.ErrInvalidParameter)
}

func TestConfig_Logger(t *testing.T) {
	t.Parallel()
	c := &Config{LogLevel: "debug"}
	l := c.Logger("oidc-login")
	assert.Equal(t, "oidc-login", l.Name())
	assert.Equal(t, hclog.Debug, l.GetLevel())
}

func TestOIDCConfig_Locales(t *testing.T) {
	t.Parallel()
	tags, err := OIDCConfig{}.Locales()
	require.NoError(t, err)
	assert.Empty(t, tags)

	_, err = OIDCConfig{UILocales: []string{"en", "!!"}}.Locales()
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
