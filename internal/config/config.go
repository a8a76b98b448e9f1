// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/cap-oidc-login/internal/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

const (
	// DefaultSessionSecret signs session cookies unless SESSION_SECRET is
	// set.  It's public, so anyone can forge a cookie while it's in use.
	DefaultSessionSecret = "ourapplicationsecret"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	// PolicyDegrade keeps serving without login when discovery fails.
	PolicyDegrade = "degrade"
	// PolicyFail exits when discovery fails.
	PolicyFail = "fail"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config for the server.
type Config struct {
	AppEnv    string `env:"APP_ENV"    envDefault:"development" validate:"oneof=development production"`
	Port      int    `env:"PORT"       envDefault:"3000"        validate:"min=1,max=65535"`
	PublicDir string `env:"PUBLIC_DIR" envDefault:"public"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"        validate:"oneof=trace debug info warn error off"`
	LogJSON   bool   `env:"LOG_JSON"`

	SessionSecret string        `env:"SESSION_SECRET"        envDefault:"ourapplicationsecret" validate:"required"`
	SessionStore  string        `env:"SESSION_STORE"         envDefault:"memory"               validate:"oneof=memory redis"`
	SessionTTL    time.Duration `env:"SESSION_TTL"           envDefault:"24h"                  validate:"gt=0"`
	SecureCookie  bool          `env:"SESSION_COOKIE_SECURE"`
	RedisAddr     string        `env:"REDIS_ADDR"            envDefault:"localhost:6379"       validate:"required_if=SessionStore redis"`

	OIDC OIDCConfig `envPrefix:"OIDC_"`
}

// OIDCConfig is the relying party's configuration.
type OIDCConfig struct {
	Enabled          bool          `env:"ENABLED"           envDefault:"true"`
	Issuer           string        `env:"ISSUER"            envDefault:"https://mitreid.org/"                        validate:"required_if=Enabled true,omitempty,url"`
	ClientID         string        `env:"CLIENT_ID"         envDefault:"login-nodejs-govt-test"                      validate:"required_if=Enabled true"`
	RedirectURL      string        `env:"REDIRECT_URL"      envDefault:"http://localhost:3000/openid-connect-login" validate:"required_if=Enabled true,omitempty,url"`
	Scopes           []string      `env:"SCOPES"            envDefault:"openid profile email phone address"          envSeparator:" " validate:"dive,required"`
	UILocales        []string      `env:"UI_LOCALES"        envSeparator:" "                                         validate:"dive,bcp47_language_tag"`
	KeyFile          string        `env:"KEY_FILE"          envDefault:"./full_key.jwk"                              validate:"required_if=Enabled true"`
	CAFile           string        `env:"CA_FILE"`
	UserInfo         bool          `env:"USERINFO"          envDefault:"true"`
	StartupPolicy    string        `env:"STARTUP_POLICY"    envDefault:"degrade"                                     validate:"oneof=degrade fail"`
	DiscoveryTimeout time.Duration `env:"DISCOVERY_TIMEOUT" envDefault:"0s"                                          validate:"gte=0"`
}

// Load reads the Config from the environment.  Defaults apply to anything
// unset.  Load doesn't validate; call Validate once any flags are applied.
//
// Supported options:
//   - WithEnvironment
//   - WithEnvFile
func Load(opt ...Option) (*Config, error) {
	const op = "config.Load"
	opts := getLoadOpts(opt...)

	environ := opts.withEnvironment
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}
	if opts.withEnvFile != "" {
		fromFile, err := godotenv.Read(opts.withEnvFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("%s: %s: %w: %w", op, opts.withEnvFile, ErrEnvFile, err)
		default:
			for k, v := range fromFile {
				if _, ok := environ[k]; !ok {
					environ[k] = v
				}
			}
		}
	}

	var c Config
	if err := env.ParseWithOptions(&c, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidConfig, err)
	}
	return &c, nil
}

// Validate checks the Config.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidConfig, err)
	}
	return nil
}

// IsDevelopment reports whether error details may be shown to users.
func (c *Config) IsDevelopment() bool { return c.AppEnv == EnvDevelopment }

// UsesDefaultSecret reports whether session cookies are signed with
// DefaultSessionSecret.
func (c *Config) UsesDefaultSecret() bool { return c.SessionSecret == DefaultSessionSecret }

// Logger creates the root logger.
func (c *Config) Logger(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(c.LogLevel),
		JSONFormat: c.LogJSON,
	})
}

// FailFast reports whether a discovery failure should stop the server.
func (o OIDCConfig) FailFast() bool { return o.StartupPolicy == PolicyFail }

// ProviderConfig creates the issuer discovery config, reading the CA file
// if one is set.
func (o OIDCConfig) ProviderConfig() (*oidc.Config, error) {
	const op = "OIDCConfig.ProviderConfig"
	var opts []oidc.Option
	if o.CAFile != "" {
		pem, err := os.ReadFile(o.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to read CA file: %w", op, err)
		}
		opts = append(opts, oidc.WithProviderCA(string(pem)))
	}
	c, err := oidc.NewConfig(o.Issuer, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Locales parses UILocales.
func (o OIDCConfig) Locales() ([]language.Tag, error) {
	const op = "OIDCConfig.Locales"
	tags := make([]language.Tag, 0, len(o.UILocales))
	for _, l := range o.UILocales {
		t, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("%s: %q: %w", op, l, ErrInvalidParameter)
		}
		tags = append(tags, t)
	}
	return tags, nil
}
