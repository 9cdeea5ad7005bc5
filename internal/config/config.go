// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

// Package config loads service configuration from files, flags, and the
// environment.
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/safechain/safechain/internal/xdg"
)

// SMTP holds outbound mail settings. When Host is empty, reset emails are
// logged instead of sent.
type SMTP struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Config holds the full service configuration.
type Config struct {
	HTTPAddr       string   `koanf:"http-addr"`
	MetricsAddr    string   `koanf:"metrics-addr"`
	DatabaseURL    string   `koanf:"database-url"`
	LogFormat      string   `koanf:"log-format"`
	LogLevel       string   `koanf:"log-level"`
	ResetBaseURL   string   `koanf:"reset-base-url"`
	AllowedOrigins []string `koanf:"allowed-origins"`
	SMTP           SMTP     `koanf:"smtp"`
}

// Default values applied before any file or flag overrides.
const (
	DefaultHTTPAddr     = ":8080"
	DefaultMetricsAddr  = "127.0.0.1:9100"
	DefaultLogFormat    = "json"
	DefaultLogLevel     = "info"
	DefaultResetBaseURL = "http://localhost:8080"
)

// Load builds the configuration with the precedence: flag defaults, then an
// optional YAML file, then explicitly set flags. The DATABASE_URL environment
// variable overrides the database URL from any other source.
//
// When path is empty, the XDG config file is loaded if it exists; an explicit
// path that cannot be read is an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		if candidate := xdg.DefaultConfigFile(); fileExists(candidate) {
			path = candidate
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := &Config{
		HTTPAddr:     DefaultHTTPAddr,
		MetricsAddr:  DefaultMetricsAddr,
		LogFormat:    DefaultLogFormat,
		LogLevel:     DefaultLogLevel,
		ResetBaseURL: DefaultResetBaseURL,
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if env := os.Getenv("DATABASE_URL"); env != "" {
		cfg.DatabaseURL = env
	}

	return cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http-addr is required")
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (set DATABASE_URL or database-url)")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.ResetBaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("reset-base-url is required")
	}
	return nil
}
