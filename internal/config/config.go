// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config loads seedapi settings from defaults, an optional YAML
// file, an optional .env file and the environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"seedapi/internal/resource"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrFileNotFound = errors.New("configuration file not found")

type Config struct {
	// Env is "development" or "production"; development exposes internal
	// error details to clients.
	Env string `yaml:"env"`

	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Source   SourceConfig   `yaml:"source"`
	Cache    CacheConfig    `yaml:"cache"`
	Registry RegistryConfig `yaml:"registry"`
	Resource ResourceConfig `yaml:"resource"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File is the rotated log file; empty disables file output.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type SourceConfig struct {
	GitHubURL   string        `yaml:"github_url"`
	GitHubToken string        `yaml:"github_token"`
	Path        string        `yaml:"path"`
	Timeout     time.Duration `yaml:"timeout"`
	// SeedFile serves the internal /api and /~ paths.
	SeedFile string `yaml:"seed_file"`
}

type CacheConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// TTL refreshes cached documents older than this; zero keeps them
	// forever.
	TTL time.Duration `yaml:"ttl"`
}

type RegistryConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	MaxEntries    int           `yaml:"max_entries"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	PersistWrites bool          `yaml:"persist_writes"`
}

type ResourceConfig struct {
	PrimaryKey string `yaml:"primary_key"`
	IDPolicy   string `yaml:"id_policy"`
	Validate   bool   `yaml:"validate"`
}

func Default() *Config {
	return &Config{
		Env: "production",
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Source: SourceConfig{
			GitHubURL: "https://api.github.com",
			Path:      "db.json",
			Timeout:   10 * time.Second,
			SeedFile:  "db.json",
		},
		Cache: CacheConfig{
			Driver: "memory",
			TTL:    time.Hour,
		},
		Registry: RegistryConfig{
			TTL:           10 * time.Minute,
			MaxEntries:    128,
			SweepInterval: time.Minute,
			PersistWrites: true,
		},
		Resource: ResourceConfig{
			PrimaryKey: "id",
			IDPolicy:   "count",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// SEEDAPI_CONFIG is consulted; a missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("SEEDAPI_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("SEEDAPI_ENV", &c.Env)
	setString("SEEDAPI_ADDR", &c.Server.Addr)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setString("SEEDAPI_LOG_FILE", &c.Log.File)
	setString("GITHUB_TOKEN", &c.Source.GitHubToken)
	setString("SEEDAPI_SEED_FILE", &c.Source.SeedFile)
	setString("SEEDAPI_CACHE_DRIVER", &c.Cache.Driver)
	setString("SEEDAPI_CACHE_DSN", &c.Cache.DSN)

	if v, ok := os.LookupEnv("SEEDAPI_PERSIST_WRITES"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEEDAPI_PERSIST_WRITES: %w", err)
		}
		c.Registry.PersistWrites = b
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want console or json", c.Log.Format))
	}
	switch c.Cache.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Cache.DSN == "" {
			errs = append(errs, errors.New("cache.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.driver %q: want memory, sqlite or postgres", c.Cache.Driver))
	}
	if c.Registry.MaxEntries <= 0 {
		errs = append(errs, errors.New("registry.max_entries must be positive"))
	}
	if c.Registry.SweepInterval <= 0 {
		errs = append(errs, errors.New("registry.sweep_interval must be positive"))
	}
	if c.Resource.PrimaryKey == "" {
		errs = append(errs, errors.New("resource.primary_key is required"))
	}
	if _, err := resource.ParseIDPolicy(c.Resource.IDPolicy); err != nil {
		errs = append(errs, fmt.Errorf("resource.id_policy: %w", err))
	}

	return errors.Join(errs...)
}

// Development reports whether internal error details may be shown.
func (c *Config) Development() bool {
	return c.Env == "development"
}
