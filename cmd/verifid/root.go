// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/verifid/verifid/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the verifid CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verifid",
		Short: "verifid - email verification and session service",
		Long: `verifid registers users, verifies their email address with a
one-time code and issues signed session tokens on login.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/verifid/config.yaml)")
	cmd.PersistentFlags().String("log-format", "json", "log format (json or text)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn or error)")

	cmd.AddCommand(NewServeCmd(nil))
	cmd.AddCommand(NewMigrateCmd(nil))
	cmd.AddCommand(NewQuotaCmd(nil))
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewCertsCmd())

	return cmd
}

// loadConfig reads the configuration for cmd. Only serve needs every section,
// so other commands skip validation.
func loadConfig(cmd *cobra.Command, validate bool) (*config.Config, error) {
	opts := config.LoadOptions{Path: configFile, Flags: cmd.Flags()}
	if validate {
		return config.Load(opts)
	}
	return config.LoadUnvalidated(opts)
}
