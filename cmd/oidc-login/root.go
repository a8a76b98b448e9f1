// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/cap-oidc-login/internal/config"
	"github.com/spf13/cobra"
)

const defaultEnvFile = ".env"

// app is the state shared by the commands.
type app struct {
	loadOpts []config.Option

	envFile  string
	logLevel string

	cfg *config.Config
}

// newRootCmd creates the command tree.  The loadOpts are passed to
// config.Load after the env file.
func newRootCmd(loadOpts ...config.Option) *cobra.Command {
	a := &app{loadOpts: loadOpts}
	root := &cobra.Command{
		Use:   "oidc-login",
		Short: "OpenID Connect login demo",
		Long: `oidc-login serves a small site whose users log in with OpenID Connect.

The relying party authenticates to the provider's token endpoint with a
private_key_jwt client assertion signed by a key from a local JWK Set file.
Configuration comes from the environment (see .env.example) and flags.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.loadConfig,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", defaultEnvFile, "dotenv file to read, if it exists")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn or error (env: LOG_LEVEL)")

	root.AddCommand(
		a.newServeCmd(),
		a.newJWKSCmd(),
		a.newKeygenCmd(),
	)
	return root
}

func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("env-file") {
		if _, err := os.Stat(a.envFile); err != nil {
			return fmt.Errorf("env file: %w", err)
		}
	}
	opts := append([]config.Option{config.WithEnvFile(a.envFile)}, a.loadOpts...)
	cfg, err := config.Load(opts...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	return nil
}
