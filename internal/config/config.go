// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

// Package config loads the carvalue server configuration.
//
// Values are layered lowest to highest: built-in defaults, the YAML file
// named by --config, command-line flags the user actually set, and finally
// the DATABASE_URL environment variable.
package config

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/carvalue/carvalue/internal/logging"
)

// Session backends.
const (
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

// Config is the full server configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" yaml:"http"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Session  SessionConfig  `koanf:"session" yaml:"session"`
	Redis    RedisConfig    `koanf:"redis" yaml:"redis"`
	Auth     AuthConfig     `koanf:"auth" yaml:"auth"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr" yaml:"addr" jsonschema:"description=API listen address"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins" yaml:"cors_origins" jsonschema:"description=Allowed origins; glob patterns are accepted"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes" yaml:"max_body_bytes" jsonschema:"minimum=1,description=Largest accepted request body"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// LogConfig configures the slog default logger.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL            string `koanf:"url" yaml:"url"`
	MaxConns       int32  `koanf:"max_conns" yaml:"max_conns" jsonschema:"minimum=0"`
	ConnectRetries uint64 `koanf:"connect_retries" yaml:"connect_retries"`
}

// SessionConfig configures session storage and the session cookie.
type SessionConfig struct {
	Backend       string        `koanf:"backend" yaml:"backend" jsonschema:"enum=postgres,enum=redis"`
	TTL           time.Duration `koanf:"ttl" yaml:"ttl"`
	CookieName    string        `koanf:"cookie_name" yaml:"cookie_name"`
	CookieSecure  bool          `koanf:"cookie_secure" yaml:"cookie_secure"`
	SweepInterval time.Duration `koanf:"sweep_interval" yaml:"sweep_interval"`
}

// RedisConfig is used when the session backend is redis.
type RedisConfig struct {
	Addr     string `koanf:"addr" yaml:"addr"`
	Password string `koanf:"password" yaml:"password"`
	DB       int    `koanf:"db" yaml:"db" jsonschema:"minimum=0"`
}

// AuthConfig tunes the auth service and its HTTP surface.
type AuthConfig struct {
	// HideAccountExistence makes signin with an unknown email look exactly
	// like signin with a wrong password.
	HideAccountExistence bool `koanf:"hide_account_existence" yaml:"hide_account_existence"`
	// HashConcurrency caps concurrent scrypt calls. Zero means GOMAXPROCS.
	HashConcurrency int `koanf:"hash_concurrency" yaml:"hash_concurrency" jsonschema:"minimum=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:              ":3000",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			CORSOrigins:       []string{"http://localhost:*"},
			MaxBodyBytes:      64 << 10,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: logging.FormatJSON, Level: "info"},
		Database: DatabaseConfig{
			MaxConns:       10,
			ConnectRetries: 5,
		},
		Session: SessionConfig{
			Backend:       SessionBackendPostgres,
			TTL:           24 * time.Hour,
			CookieName:    "carvalue_session",
			SweepInterval: 10 * time.Minute,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Auth:  AuthConfig{HideAccountExistence: true},
	}
}

// Validate checks the configuration. The database URL is not required here;
// commands that need it check for it themselves.
func (c *Config) Validate() error {
	//nolint:wrapcheck // ozzo errors carry field names; callers wrap
	return validation.ValidateStruct(c,
		validation.Field(&c.HTTP),
		validation.Field(&c.Log),
		validation.Field(&c.Database),
		validation.Field(&c.Session),
		validation.Field(&c.Redis),
		validation.Field(&c.Auth),
	)
}

// Validate implements validation.Validatable.
func (h HTTPConfig) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Addr, validation.Required),
		validation.Field(&h.ReadHeaderTimeout, validation.Min(time.Duration(0))),
		validation.Field(&h.ShutdownTimeout, validation.Required, validation.Min(time.Duration(0))),
		validation.Field(&h.MaxBodyBytes, validation.Required, validation.Min(int64(1))),
	)
}

// Validate implements validation.Validatable.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Format, validation.By(func(v any) error {
			if !logging.ValidFormat(v.(string)) {
				return errors.New("must be 'json' or 'text'")
			}
			return nil
		})),
		validation.Field(&l.Level, validation.By(func(v any) error {
			if _, err := logging.ParseLevel(v.(string)); err != nil {
				return errors.New("must be one of debug, info, warn, error")
			}
			return nil
		})),
	)
}

// Validate implements validation.Validatable.
func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.URL, is.RequestURI),
		validation.Field(&d.MaxConns, validation.Min(int32(0))),
	)
}

// Validate implements validation.Validatable.
func (s SessionConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Backend, validation.Required, validation.In(SessionBackendPostgres, SessionBackendRedis)),
		validation.Field(&s.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&s.CookieName, validation.Required),
		validation.Field(&s.SweepInterval, validation.Min(time.Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (r RedisConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Addr, validation.Required),
		validation.Field(&r.DB, validation.Min(0)),
	)
}

// Validate implements validation.Validatable.
func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.HashConcurrency, validation.Min(0)),
	)
}
