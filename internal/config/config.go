// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

// Package config loads verifid settings from defaults, a YAML file, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"time"

	"github.com/samber/oops"

	"github.com/verifid/verifid/internal/auth"
	"github.com/verifid/verifid/internal/mail"
	"github.com/verifid/verifid/internal/token"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Mail drivers.
const (
	MailSMTP = "smtp"
	MailLog  = "log"
)

// Rate limit backends.
const (
	RateLimitOff    = "off"
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// Config is the complete verifid configuration.
type Config struct {
	HTTP          HTTPConfig          `koanf:"http" json:"http,omitempty"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability,omitempty"`
	Storage       StorageConfig       `koanf:"storage" json:"storage,omitempty"`
	Token         TokenConfig         `koanf:"token" json:"token,omitempty"`
	Codes         CodesConfig         `koanf:"codes" json:"codes,omitempty"`
	Password      PasswordConfig      `koanf:"password" json:"password,omitempty"`
	Mail          MailConfig          `koanf:"mail" json:"mail,omitempty"`
	Log           LogConfig           `koanf:"log" json:"log,omitempty"`
	RateLimit     RateLimitConfig     `koanf:"ratelimit" json:"ratelimit,omitempty"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr            string   `koanf:"addr" json:"addr,omitempty" jsonschema:"description=API listen address"`
	ReadTimeout     Duration `koanf:"read_timeout" json:"read_timeout,omitempty"`
	WriteTimeout    Duration `koanf:"write_timeout" json:"write_timeout,omitempty"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout" json:"shutdown_timeout,omitempty"`
	TLSCertFile     string   `koanf:"tls_cert_file" json:"tls_cert_file,omitempty" jsonschema:"description=PEM certificate; serves HTTPS when set with tls_key_file"`
	TLSKeyFile      string   `koanf:"tls_key_file" json:"tls_key_file,omitempty"`
}

// TLSEnabled reports whether the API is served over HTTPS.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" || c.TLSKeyFile != ""
}

// ObservabilityConfig configures the metrics and health listener.
type ObservabilityConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=Metrics and health listen address; empty disables the server"`
}

// StorageConfig selects the CredentialStore.
type StorageConfig struct {
	Driver         string   `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=memory,enum=postgres"`
	DSN            string   `koanf:"dsn" json:"dsn,omitempty" jsonschema:"description=PostgreSQL connection URL"`
	AutoMigrate    bool     `koanf:"auto_migrate" json:"auto_migrate,omitempty"`
	ConnectTimeout Duration `koanf:"connect_timeout" json:"connect_timeout,omitempty"`
	MaxConns       int32    `koanf:"max_conns" json:"max_conns,omitempty" jsonschema:"minimum=0"`
}

// TokenConfig configures session tokens.
type TokenConfig struct {
	Secret string   `koanf:"secret" json:"secret,omitempty" jsonschema:"description=HMAC signing secret; at least 32 bytes"`
	TTL    Duration `koanf:"ttl" json:"ttl,omitempty"`
	Issuer string   `koanf:"issuer" json:"issuer,omitempty"`
}

// CodesConfig configures verification codes and the resend quota.
type CodesConfig struct {
	TTL         Duration `koanf:"ttl" json:"ttl,omitempty"`
	MaxResends  int      `koanf:"max_resends" json:"max_resends,omitempty" jsonschema:"minimum=1"`
	ResetPolicy string   `koanf:"reset_policy" json:"reset_policy,omitempty" jsonschema:"enum=manual,enum=daily,enum=sliding"`
	Window      Duration `koanf:"window" json:"window,omitempty" jsonschema:"description=Resend window for the sliding policy"`
	TimeZone    string   `koanf:"time_zone" json:"time_zone,omitempty" jsonschema:"description=IANA zone for the daily policy"`
}

// PasswordConfig selects the password hashing algorithm.
type PasswordConfig struct {
	Algorithm  string `koanf:"algorithm" json:"algorithm,omitempty" jsonschema:"enum=bcrypt,enum=argon2id"`
	BcryptCost int    `koanf:"bcrypt_cost" json:"bcrypt_cost,omitempty" jsonschema:"minimum=4,maximum=31"`
}

// MailConfig selects and configures the Notifier.
type MailConfig struct {
	Driver   string   `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=smtp,enum=log"`
	Host     string   `koanf:"host" json:"host,omitempty"`
	Port     int      `koanf:"port" json:"port,omitempty" jsonschema:"minimum=1,maximum=65535"`
	Username string   `koanf:"username" json:"username,omitempty"`
	Password string   `koanf:"password" json:"password,omitempty"`
	From     string   `koanf:"from" json:"from,omitempty"`
	Subject  string   `koanf:"subject" json:"subject,omitempty"`
	TLS      string   `koanf:"tls" json:"tls,omitempty" jsonschema:"enum=mandatory,enum=opportunistic,enum=none"`
	Timeout  Duration `koanf:"timeout" json:"timeout,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// RateLimitConfig configures per-client request limiting on the API.
type RateLimitConfig struct {
	Backend       string   `koanf:"backend" json:"backend,omitempty" jsonschema:"enum=off,enum=memory,enum=redis"`
	Requests      int      `koanf:"requests" json:"requests,omitempty" jsonschema:"minimum=1"`
	Window        Duration `koanf:"window" json:"window,omitempty"`
	RedisAddr     string   `koanf:"redis_addr" json:"redis_addr,omitempty"`
	RedisPassword string   `koanf:"redis_password" json:"redis_password,omitempty"`
	RedisDB       int      `koanf:"redis_db" json:"redis_db,omitempty" jsonschema:"minimum=0"`
}

// Defaults returns the configuration used when nothing else is set.
// The token secret has no default.
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Observability: ObservabilityConfig{Addr: ":9100"},
		Storage: StorageConfig{
			Driver:         StorageMemory,
			ConnectTimeout: Duration(30 * time.Second),
		},
		Token: TokenConfig{
			TTL:    Duration(auth.DefaultSessionTTL),
			Issuer: "verifid",
		},
		Codes: CodesConfig{
			TTL:         Duration(auth.DefaultCodeTTL),
			MaxResends:  auth.DefaultMaxResends,
			ResetPolicy: string(auth.ResetDaily),
			Window:      Duration(auth.DefaultResendWindow),
			TimeZone:    "UTC",
		},
		Password: PasswordConfig{
			Algorithm:  auth.AlgorithmBcrypt,
			BcryptCost: auth.DefaultBcryptCost,
		},
		Mail: MailConfig{
			Driver:  MailLog,
			Port:    587,
			Subject: mail.DefaultSubject,
			TLS:     mail.TLSMandatory,
			Timeout: Duration(15 * time.Second),
		},
		Log: LogConfig{Format: "json", Level: "info"},
		RateLimit: RateLimitConfig{
			Backend:  RateLimitMemory,
			Requests: 20,
			Window:   Duration(time.Minute),
		},
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if len(c.Token.Secret) < token.MinSecretLength {
		return invalid("token.secret", "must be at least %d bytes", token.MinSecretLength)
	}
	return c.ValidateSettings()
}

// ValidateSettings runs every check of Validate except the token secret check.
// The secret is normally injected through JWT_SECRET or VERIFID_TOKEN__SECRET,
// so a config file without one is still a valid file.
func (c *Config) ValidateSettings() error {
	if c.Token.Secret != "" && len(c.Token.Secret) < token.MinSecretLength {
		return invalid("token.secret", "must be at least %d bytes", token.MinSecretLength)
	}
	if c.Token.TTL <= 0 {
		return invalid("token.ttl", "must be positive")
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "is required")
	}
	if (c.HTTP.TLSCertFile == "") != (c.HTTP.TLSKeyFile == "") {
		return invalid("http.tls_cert_file", "and http.tls_key_file must be set together")
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return invalid("storage.dsn", "is required for the postgres driver")
		}
	default:
		return invalid("storage.driver", "unknown driver %q", c.Storage.Driver)
	}

	if c.Codes.TTL <= 0 {
		return invalid("codes.ttl", "must be positive")
	}
	if _, err := c.Codes.Quota(); err != nil {
		return err
	}

	switch c.Password.Algorithm {
	case auth.AlgorithmBcrypt, auth.AlgorithmArgon2id:
	default:
		return invalid("password.algorithm", "unknown algorithm %q", c.Password.Algorithm)
	}

	switch c.Mail.Driver {
	case MailLog:
	case MailSMTP:
		if c.Mail.Host == "" {
			return invalid("mail.host", "is required for the smtp driver")
		}
		if c.Mail.From == "" && c.Mail.Username == "" {
			return invalid("mail.from", "is required when mail.username is empty")
		}
	default:
		return invalid("mail.driver", "unknown driver %q", c.Mail.Driver)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format", "unknown format %q", c.Log.Format)
	}

	switch c.RateLimit.Backend {
	case RateLimitOff:
	case RateLimitMemory, RateLimitRedis:
		if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
			return invalid("ratelimit", "requests and window must be positive")
		}
		if c.RateLimit.Backend == RateLimitRedis && c.RateLimit.RedisAddr == "" {
			return invalid("ratelimit.redis_addr", "is required for the redis backend")
		}
	default:
		return invalid("ratelimit.backend", "unknown backend %q", c.RateLimit.Backend)
	}
	return nil
}

// Quota builds the resend quota.
func (c CodesConfig) Quota() (auth.ResendQuota, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return auth.ResendQuota{}, oops.Code("CONFIG_INVALID").
			With("key", "codes.time_zone").
			Wrap(err)
	}
	q := auth.ResendQuota{
		Max:      c.MaxResends,
		Policy:   auth.ResetPolicy(c.ResetPolicy),
		Window:   c.Window.Std(),
		Location: loc,
	}
	if err := q.Validate(); err != nil {
		return auth.ResendQuota{}, invalid("codes", "%s", err.Error())
	}
	return q, nil
}

// CodeConfig builds the CodeIssuer settings.
func (c CodesConfig) CodeConfig() (auth.CodeConfig, error) {
	q, err := c.Quota()
	if err != nil {
		return auth.CodeConfig{}, err
	}
	return auth.CodeConfig{TTL: c.TTL.Std(), Quota: q}, nil
}

// SMTP builds the SMTP notifier settings.
func (c MailConfig) SMTP(codeTTL time.Duration) mail.Config {
	return mail.Config{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
		Subject:  c.Subject,
		TLS:      c.TLS,
		Timeout:  c.Timeout.Std(),
		CodeTTL:  codeTTL,
	}
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(key+" "+format, args...)
}
