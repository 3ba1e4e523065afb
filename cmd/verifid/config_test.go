// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/verifid/verifid/internal/config"
	"github.com/verifid/verifid/pkg/errutil"
)

func TestConfigSchema(t *testing.T) {
	output, err := execute(t, NewRootCmd(), "config", "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])
}

func TestConfigValidate(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.yaml")
	require.NoError(t, os.WriteFile(valid, []byte("http:\n  addr: \":9000\"\n"), 0o600))
	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("storage:\n  driver: sqlite\n"), 0o600))

	output, err := execute(t, NewRootCmd(), "config", "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, output, "is valid")

	_, err = execute(t, NewRootCmd(), "config", "validate", invalid)
	require.Error(t, err)

	shortSecret := filepath.Join(dir, "short.yaml")
	require.NoError(t, os.WriteFile(shortSecret, []byte("token:\n  secret: short\n"), 0o600))
	_, err = execute(t, NewRootCmd(), "config", "validate", shortSecret)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")

	_, err = execute(t, NewRootCmd(), "config", "validate")
	require.Error(t, err, "file argument is required")
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SMTP_PASS", "hunter22")
	t.Setenv("DATABASE_URL", "postgres://u:pw@db/verifid")

	output, err := execute(t, NewRootCmd(), "config", "show", "--log-level", "debug")
	require.NoError(t, err)
	assert.NotContains(t, output, testSecret)
	assert.NotContains(t, output, "hunter22")
	assert.NotContains(t, output, "pw@db")

	var doc map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(output), &doc))
	assert.Equal(t, redactedValue, doc["token"]["secret"])
	assert.Equal(t, redactedValue, doc["mail"]["password"])
	assert.Equal(t, "debug", doc["log"]["level"], "flags are applied")
	assert.Equal(t, "10s", doc["http"]["read_timeout"])
}

func TestRedactConfig_LeavesEmptyValues(t *testing.T) {
	cfg := redactConfig(config.Defaults())
	assert.Empty(t, cfg.Token.Secret)
	assert.Empty(t, cfg.Storage.DSN)
}
