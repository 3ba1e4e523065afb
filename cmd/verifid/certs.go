// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/verifid/verifid/internal/tls"
	"github.com/verifid/verifid/internal/xdg"
)

// NewCertsCmd creates the certs command group.
func NewCertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Manage API TLS certificates",
	}
	cmd.AddCommand(newCertsGenerateCmd())
	return cmd
}

func newCertsGenerateCmd() *cobra.Command {
	var (
		outDir   string
		hosts    []string
		validFor time.Duration
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a self-signed certificate for local HTTPS",
		Long: `Generate a self-signed ECDSA certificate and key. Point
http.tls_cert_file and http.tls_key_file at the written files to serve HTTPS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outDir == "" {
				outDir = filepath.Join(xdg.ConfigDir(), "certs")
			}
			kp, err := tls.GenerateSelfSigned(hosts, validFor)
			if err != nil {
				return err
			}
			certPath := filepath.Join(outDir, "server.crt")
			keyPath := filepath.Join(outDir, "server.key")
			if err := kp.Save(certPath, keyPath); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\nWrote %s\nValid until %s\n",
				certPath, keyPath, kp.Certificate.NotAfter.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "output directory (default: XDG_CONFIG_HOME/verifid/certs)")
	cmd.Flags().StringSliceVar(&hosts, "host", []string{"localhost", "127.0.0.1"}, "DNS names or IP addresses the certificate covers")
	cmd.Flags().DurationVar(&validFor, "valid-for", tls.DefaultValidity, "certificate lifetime")
	return cmd
}
