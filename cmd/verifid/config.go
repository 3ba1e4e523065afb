// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/verifid/verifid/internal/config"
)

const redactedValue = "[REDACTED]"

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(schema))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a config file against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateFile(args[0]); err != nil {
				return err
			}
			cmd.Printf("%s is valid\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			out, err := renderYAML(redactConfig(*cfg))
			if err != nil {
				return err
			}
			cmd.Print(out)
			return nil
		},
	})

	return cmd
}

// redactConfig returns a copy of cfg that is safe to print.
func redactConfig(cfg config.Config) config.Config {
	for _, secret := range []*string{
		&cfg.Token.Secret,
		&cfg.Mail.Password,
		&cfg.RateLimit.RedisPassword,
		&cfg.Storage.DSN,
	} {
		if *secret != "" {
			*secret = redactedValue
		}
	}
	return cfg
}

// renderYAML prints cfg with the same keys the config file uses.
func renderYAML(cfg config.Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
