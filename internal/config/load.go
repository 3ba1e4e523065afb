// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/verifid/verifid/internal/xdg"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// sections: VERIFID_TOKEN__SECRET sets token.secret.
const EnvPrefix = "VERIFID_"

// legacyEnv maps unprefixed variable names onto config keys. Prefixed
// variables take precedence over these.
var legacyEnv = map[string]string{
	"JWT_SECRET":   "token.secret",
	"SMTP_HOST":    "mail.host",
	"SMTP_USER":    "mail.username",
	"SMTP_PASS":    "mail.password",
	"DATABASE_URL": "storage.dsn",
}

// flagKeys maps command-line flags onto config keys. Flags missing from the
// set are ignored.
var flagKeys = map[string]string{
	"http-addr":      "http.addr",
	"metrics-addr":   "observability.addr",
	"storage-driver": "storage.driver",
	"database-url":   "storage.dsn",
	"auto-migrate":   "storage.auto_migrate",
	"mail-driver":    "mail.driver",
	"tls-cert-file":  "http.tls_cert_file",
	"tls-key-file":   "http.tls_key_file",
	"log-format":     "log.format",
	"log-level":      "log.level",
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is the YAML file to read. When empty the XDG default is used if it exists.
	Path string
	// Flags are applied last. Only flags named in flagKeys and set on the
	// command line are read.
	Flags *pflag.FlagSet
}

// Load builds a Config from defaults, file, environment and flags, then
// validates it.
func Load(opts LoadOptions) (*Config, error) {
	cfg, err := load(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnvalidated is Load without the final Validate, for commands that only
// need part of the configuration.
func LoadUnvalidated(opts LoadOptions) (*Config, error) {
	return load(opts)
}

func load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path = xdg.ConfigFile()
	}
	if err := loadFile(k, path, explicit); err != nil {
		return nil, err
	}

	if err := k.Load(env.ProviderWithValue("", ".", legacyKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "legacy env").Wrap(err)
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		return envKey(key), value
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode").Wrap(err)
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	if err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	if err := ValidateYAML(data); err != nil {
		return oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// envKey turns VERIFID_CODES__MAX_RESENDS into codes.max_resends.
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(name, "__", ".")
}

func legacyKey(name, value string) (string, any) {
	key, ok := legacyEnv[name]
	if !ok || value == "" {
		return "", nil
	}
	return key, value
}
