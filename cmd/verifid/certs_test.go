// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifid/verifid/internal/tls"
)

func TestCertsGenerate(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	out, err := execute(t, NewRootCmd(), "certs", "generate", "--out-dir", dir, "--host", "api.local", "--host", "10.1.2.3")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+filepath.Join(dir, "server.crt"))
	assert.Contains(t, out, "Valid until")

	cfg, err := tls.LoadServerConfig(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
}

func TestCertsGenerate_DefaultDirectory(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, NewRootCmd(), "certs", "generate")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join("verifid", "certs", "server.key"))
}

func TestCertsGenerate_RejectsArgs(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, NewRootCmd(), "certs", "generate", "extra")
	assert.Error(t, err)
}
