// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// isolateEnv points XDG at an empty directory and clears configuration
// variables inherited from the environment.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	legacy := map[string]bool{"JWT_SECRET": true, "SMTP_HOST": true, "SMTP_USER": true, "SMTP_PASS": true, "DATABASE_URL": true}
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if legacy[name] || strings.HasPrefix(name, "VERIFID_") {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
	configFile = ""
	t.Cleanup(func() { configFile = "" })
}

// execute runs cmd with args and returns combined output.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// rootWith returns a root command whose sub commands use the given deps.
func rootWith(t *testing.T, sub ...*cobra.Command) *cobra.Command {
	t.Helper()
	root := NewRootCmd()
	for _, c := range sub {
		for _, existing := range root.Commands() {
			if existing.Name() == c.Name() {
				root.RemoveCommand(existing)
			}
		}
		root.AddCommand(c)
	}
	return root
}
