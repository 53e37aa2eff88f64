// Package config resolves backend credentials and logging settings once at process start.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nasdf/meeple/log"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvServiceAccount = "FIREBASE_SERVICE_ACCOUNT_JSON"
	EnvTablesURL      = "SUPABASE_URL"
	EnvTablesKey      = "SUPABASE_KEY"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
)

// placeholders are values copied from example env files that count as unset.
var placeholders = map[string]struct{}{
	"":                            {},
	"your_supabase_url_here":      {},
	"your_supabase_anon_key_here": {},
	"your_service_account_json":   {},
}

// IsPlaceholder returns true if the value is empty or a known placeholder.
func IsPlaceholder(value string) bool {
	_, ok := placeholders[strings.TrimSpace(value)]
	return ok
}

type Config struct {
	Documents DocumentsConfig `yaml:"documents"`
	Tables    TablesConfig    `yaml:"tables"`
	Log       LogConfig       `yaml:"log"`
}

// DocumentsConfig holds the credentials for a remote document database.
type DocumentsConfig struct {
	ServiceAccountJSON string `yaml:"service_account_json"`
}

// Configured returns true if real credentials are present.
func (c DocumentsConfig) Configured() bool {
	return !IsPlaceholder(c.ServiceAccountJSON)
}

// TablesConfig holds the endpoint and key for a remote relational service.
type TablesConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// Configured returns true if both the url and key are present.
func (c TablesConfig) Configured() bool {
	return !IsPlaceholder(c.URL) && !IsPlaceholder(c.Key)
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Options returns the logger options for this config.
func (c LogConfig) Options() (log.Options, error) {
	level, err := log.ParseLogLevel(c.Level)
	if err != nil {
		return log.Options{}, fmt.Errorf("invalid log level: %w", err)
	}
	typ, err := log.ParseLoggerType(c.Format)
	if err != nil {
		return log.Options{}, err
	}
	return log.Options{LogLevel: level, Type: typ}, nil
}

// Default returns a config with no credentials and info level console logging.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Parse returns the default config overridden by the given YAML document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Load reads the YAML file at path, if any, and applies environment overrides.
//
// An empty path or a missing file yields the default config.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			cfg, err = Parse(data)
			if err != nil {
				return nil, err
			}
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields with the environment variables returned by lookup.
//
// Variables that are unset or hold a placeholder are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	env := func(key string, dst *string) {
		if v, ok := lookup(key); ok && !IsPlaceholder(v) {
			*dst = strings.TrimSpace(v)
		}
	}
	env(EnvServiceAccount, &c.Documents.ServiceAccountJSON)
	env(EnvTablesURL, &c.Tables.URL)
	env(EnvTablesKey, &c.Tables.Key)
	env(EnvLogLevel, &c.Log.Level)
	env(EnvLogFormat, &c.Log.Format)
}
