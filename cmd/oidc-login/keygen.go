// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/hashicorp/cap-oidc-login/internal/keystore"
	"github.com/spf13/cobra"
)

func (a *app) newKeygenCmd() *cobra.Command {
	var (
		out  string
		kid  string
		bits int
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Write a new private RSA JWK Set file",
		Long: `Generates an RSA signing key and writes it as a JWK Set to --out, which
must not exist yet.  The key id defaults to the key's thumbprint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = a.cfg.OIDC.KeyFile
			}
			ks, err := keystore.Generate(kid, bits)
			if err != nil {
				return err
			}
			if err := ks.WriteFile(out); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote key %q to %s\n", ks.SigningKey().KeyID, out)
			return err
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "file to write (env: OIDC_KEY_FILE)")
	cmd.Flags().StringVar(&kid, "kid", "", "key id")
	cmd.Flags().IntVar(&bits, "bits", keystore.MinRSAKeyBits, "RSA key size")
	return cmd
}
