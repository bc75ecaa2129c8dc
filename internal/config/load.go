// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package config

import (
	"net/url"
	"os"
	"regexp"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvDatabaseURL overrides database.url when set.
const EnvDatabaseURL = "DATABASE_URL"

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"http-addr":       "http.addr",
	"metrics-addr":    "metrics.addr",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"session-backend": "session.backend",
	"database-url":    "database.url",
}

// BindFlags registers the override flags on fs. Their defaults mirror
// Default so help output is accurate; only flags the user sets are applied.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "API listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("session-backend", d.Session.Backend, "session store (postgres or redis)")
	fs.String("database-url", "", "PostgreSQL connection URL (overridden by "+EnvDatabaseURL+")")
}

// Options control where Load reads from.
type Options struct {
	// Path of a YAML file. Empty skips the file layer.
	Path string
	// Flags holds flags registered with BindFlags. Nil skips the flag layer.
	Flags *pflag.FlagSet
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load builds the effective configuration and validates it.
func Load(opts Options) (*Config, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	k := koanf.New(".")

	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").
				With("path", opts.Path).
				Wrap(err)
		}
		if err := ValidateDocument(data); err != nil {
			return nil, oops.Code("CONFIG_SCHEMA_INVALID").
				With("path", opts.Path).
				Wrap(err)
		}
		if err := k.Load(file.Provider(opts.Path), koanfyaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").
				With("path", opts.Path).
				Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if url := opts.Getenv(EnvDatabaseURL); url != "" {
		if err := k.Set("database.url", url); err != nil {
			return nil, oops.Code("CONFIG_ENV_FAILED").
				With("env", EnvDatabaseURL).
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}

// redactedSecret replaces passwords in Redacted output.
const redactedSecret = "xxxxx"

// dsnPassword matches password settings in keyword/value DSNs and URL queries.
var dsnPassword = regexp.MustCompile(`(password\s*=\s*)('[^']*'|[^\s&]+)`)

// Redacted returns a copy of c with the database and Redis passwords masked,
// for printing.
func (c *Config) Redacted() *Config {
	out := *c
	out.HTTP.CORSOrigins = append([]string(nil), c.HTTP.CORSOrigins...)
	out.Database.URL = redactDatabaseURL(c.Database.URL)
	if out.Redis.Password != "" {
		out.Redis.Password = redactedSecret
	}
	return &out
}

func redactDatabaseURL(raw string) string {
	if raw == "" {
		return raw
	}
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		raw = u.Redacted()
	}
	return dsnPassword.ReplaceAllString(raw, "${1}"+redactedSecret)
}

// YAML renders cfg the way it would be written in a config file.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	return out, nil
}
