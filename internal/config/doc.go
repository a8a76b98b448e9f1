// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package config reads the server's configuration from the environment, and
optionally a .env file, into a Config.

Environment variables always win over the .env file.  Every OIDC setting
is prefixed with OIDC_, e.g. OIDC_ISSUER or OIDC_KEY_FILE.

	cfg, err := config.Load(config.WithEnvFile(".env"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
*/
package config
