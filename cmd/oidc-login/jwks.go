// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/cap-oidc-login/internal/keystore"
	"github.com/spf13/cobra"
)

func (a *app) newJWKSCmd() *cobra.Command {
	var keyFile string
	cmd := &cobra.Command{
		Use:   "jwks",
		Short: "Print the public JWK Set of the key file",
		Long: `Prints the public keys of the key file as a JWK Set, which is what the
provider needs when registering the client for private_key_jwt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keyFile == "" {
				keyFile = a.cfg.OIDC.KeyFile
			}
			ks, err := keystore.Load(keyFile)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(ks.Public(), "", "  ")
			if err != nil {
				return fmt.Errorf("unable to encode public keys: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
	cmd.Flags().StringVar(&keyFile, "key-file", "", "JWK Set file (env: OIDC_KEY_FILE)")
	return cmd
}
