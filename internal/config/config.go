// Package config provides layered configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // local_tz must resolve on hosts without a zoneinfo database

	"gopkg.in/yaml.v3"
)

// Config holds the resolved configuration.
type Config struct {
	// API settings
	APIURL   string `yaml:"api_url"`
	OAuthURL string `yaml:"oauth_url"`
	Timeout  int    `yaml:"timeout"` // seconds
	Limit    int    `yaml:"limit"`

	// MaxConcurrency caps in-flight requests per fetch; 0 is unbounded
	MaxConcurrency int `yaml:"max_concurrency"`

	// Credentials come from the environment only and are never written.
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`

	// Credential storage
	CredentialStore string `yaml:"credential_store"`
	RedisURL        string `yaml:"redis_url,omitempty"`

	// Response cache (requires redis_url)
	Cache CacheConfig `yaml:"cache"`

	// Presentation
	LocalTZ             string   `yaml:"local_tz"`
	ConsoleUserFields   FieldMap `yaml:"console_user_fields"`
	CSVUserFields       FieldMap `yaml:"csv_user_fields"`
	ConsoleSystemFields FieldMap `yaml:"console_system_fields"`
	CSVSystemFields     FieldMap `yaml:"csv_system_fields"`
	ConsoleGroupFields  FieldMap `yaml:"console_group_fields"`
	CSVGroupFields      FieldMap `yaml:"csv_group_fields"`

	// Observability
	LogLevel    string `yaml:"log_level,omitempty"`
	MetricsFile string `yaml:"metrics_file,omitempty"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `yaml:"-"`
}

// CacheConfig configures the Redis response cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTL     int  `yaml:"ttl"` // seconds
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// Credential store backends.
const (
	StoreFile    = "file"
	StoreKeyring = "keyring"
	StoreRedis   = "redis"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	APIURL         string
	Limit          int
	MaxConcurrency int
	LogLevel       string
	MetricsFile    string
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		APIURL:          "https://console.jumpcloud.com/api",
		OAuthURL:        "https://admin-oauth.id.jumpcloud.com/oauth2/token",
		Timeout:         10,
		Limit:           100,
		CredentialStore: StoreFile,
		Cache:           CacheConfig{Enabled: false, TTL: 300},
		LocalTZ:         "US/Eastern",
		ConsoleUserFields: FieldMap{
			{"ID", "id"},
			{"State", "pretty_state"},
			{"Email", "email"},
			{"Employee Type", "employee_type"},
			{"Job Title", "job_title"},
			{"Department", "department"},
		},
		CSVUserFields: FieldMap{
			{"ID", "id"},
			{"State", "state"},
			{"Email", "email"},
			{"Employee Type", "employee_type"},
			{"Job Title", "job_title"},
			{"Department", "department"},
			{"Cost Center", "cost_center"},
		},
		ConsoleSystemFields: FieldMap{
			{"ID", "id"},
			{"Hostname", "hostname"},
			{"Last Contact (Local)", "pretty_last_contact"},
			{"OS", "pretty_os"},
			{"Serial", "serial_number"},
		},
		CSVSystemFields: FieldMap{
			{"ID", "id"},
			{"Hostname", "hostname"},
			{"Last Contact", "last_contact"},
			{"OS", "os"},
			{"Serial", "serial_number"},
		},
		ConsoleGroupFields: FieldMap{
			{"ID", "id"},
			{"Name", "name"},
			{"Description", "description"},
		},
		CSVGroupFields: FieldMap{
			{"ID", "id"},
			{"Name", "name"},
			{"Type", "type"},
			{"Description", "description"},
		},
		Sources: make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > file > defaults
//
// The file at path is created with the defaults when it does not exist.
func Load(path string, overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	created, err := Init(path)
	if err != nil {
		return nil, err
	}
	if created {
		fmt.Fprintf(os.Stderr, "Created default configuration at: %s\n", path)
	}

	if err := loadFromFile(cfg, path); err != nil {
		return nil, err
	}
	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileConfig mirrors Config with optional fields so unset keys keep their
// defaults and only present keys are attributed to the file.
type fileConfig struct {
	APIURL          *string `yaml:"api_url"`
	OAuthURL        *string `yaml:"oauth_url"`
	Timeout         *int    `yaml:"timeout"`
	Limit           *int    `yaml:"limit"`
	MaxConcurrency  *int    `yaml:"max_concurrency"`
	CredentialStore *string `yaml:"credential_store"`
	RedisURL        *string `yaml:"redis_url"`

	Cache *struct {
		Enabled *bool `yaml:"enabled"`
		TTL     *int  `yaml:"ttl"`
	} `yaml:"cache"`

	LocalTZ             *string   `yaml:"local_tz"`
	ConsoleUserFields   *FieldMap `yaml:"console_user_fields"`
	CSVUserFields       *FieldMap `yaml:"csv_user_fields"`
	ConsoleSystemFields *FieldMap `yaml:"console_system_fields"`
	CSVSystemFields     *FieldMap `yaml:"csv_system_fields"`
	ConsoleGroupFields  *FieldMap `yaml:"console_group_fields"`
	CSVGroupFields      *FieldMap `yaml:"csv_group_fields"`
	LogLevel            *string   `yaml:"log_level"`
	MetricsFile         *string   `yaml:"metrics_file"`
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the user's config file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setFrom(cfg, "api_url", &cfg.APIURL, fc.APIURL)
	setFrom(cfg, "oauth_url", &cfg.OAuthURL, fc.OAuthURL)
	setFrom(cfg, "timeout", &cfg.Timeout, fc.Timeout)
	setFrom(cfg, "limit", &cfg.Limit, fc.Limit)
	setFrom(cfg, "max_concurrency", &cfg.MaxConcurrency, fc.MaxConcurrency)
	setFrom(cfg, "credential_store", &cfg.CredentialStore, fc.CredentialStore)
	setFrom(cfg, "redis_url", &cfg.RedisURL, fc.RedisURL)
	if fc.Cache != nil {
		setFrom(cfg, "cache.enabled", &cfg.Cache.Enabled, fc.Cache.Enabled)
		setFrom(cfg, "cache.ttl", &cfg.Cache.TTL, fc.Cache.TTL)
	}
	setFrom(cfg, "local_tz", &cfg.LocalTZ, fc.LocalTZ)
	setFrom(cfg, "console_user_fields", &cfg.ConsoleUserFields, fc.ConsoleUserFields)
	setFrom(cfg, "csv_user_fields", &cfg.CSVUserFields, fc.CSVUserFields)
	setFrom(cfg, "console_system_fields", &cfg.ConsoleSystemFields, fc.ConsoleSystemFields)
	setFrom(cfg, "csv_system_fields", &cfg.CSVSystemFields, fc.CSVSystemFields)
	setFrom(cfg, "console_group_fields", &cfg.ConsoleGroupFields, fc.ConsoleGroupFields)
	setFrom(cfg, "csv_group_fields", &cfg.CSVGroupFields, fc.CSVGroupFields)
	setFrom(cfg, "log_level", &cfg.LogLevel, fc.LogLevel)
	setFrom(cfg, "metrics_file", &cfg.MetricsFile, fc.MetricsFile)
	return nil
}

func setFrom[T any](cfg *Config, key string, dst *T, v *T) {
	if v == nil {
		return
	}
	*dst = *v
	cfg.Sources[key] = string(SourceFile)
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("JAM_CLIENT_ID"); v != "" {
		cfg.ClientID = v
		cfg.Sources["client_id"] = string(SourceEnv)
	}
	if v := os.Getenv("JAM_CLIENT_SECRET"); v != "" {
		cfg.ClientSecret = v
		cfg.Sources["client_secret"] = string(SourceEnv)
	}
	if v := os.Getenv("JAM_API_URL"); v != "" {
		cfg.APIURL = v
		cfg.Sources["api_url"] = string(SourceEnv)
	}
	if v := os.Getenv("JAM_OAUTH_URL"); v != "" {
		cfg.OAuthURL = v
		cfg.Sources["oauth_url"] = string(SourceEnv)
	}
	if v, ok := envInt("JAM_TIMEOUT"); ok {
		cfg.Timeout = v
		cfg.Sources["timeout"] = string(SourceEnv)
	}
	if v, ok := envInt("JAM_LIMIT"); ok {
		cfg.Limit = v
		cfg.Sources["limit"] = string(SourceEnv)
	}
	if v := os.Getenv("JAM_CREDENTIAL_STORE"); v != "" {
		cfg.CredentialStore = v
		cfg.Sources["credential_store"] = string(SourceEnv)
	}
	if v := os.Getenv("JAM_REDIS_URL"); v != "" {
		cfg.RedisURL = v
		cfg.Sources["redis_url"] = string(SourceEnv)
	}
	if v := os.Getenv("JAM_CACHE_ENABLED"); v != "" {
		if b, ok := parseEnvBool(v); ok {
			cfg.Cache.Enabled = b
			cfg.Sources["cache.enabled"] = string(SourceEnv)
		}
	}
	if v := os.Getenv("JAM_LOCAL_TZ"); v != "" {
		cfg.LocalTZ = v
		cfg.Sources["local_tz"] = string(SourceEnv)
	}
}

// envInt reads an integer variable. Malformed values are ignored.
func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: ignoring %s=%q: not a number\n", name, v)
		return 0, false
	}
	return n, true
}

// parseEnvBool parses a boolean environment variable strictly.
func parseEnvBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
		cfg.Sources["api_url"] = string(SourceFlag)
	}
	if o.Limit > 0 {
		cfg.Limit = o.Limit
		cfg.Sources["limit"] = string(SourceFlag)
	}
	if o.MaxConcurrency > 0 {
		cfg.MaxConcurrency = o.MaxConcurrency
		cfg.Sources["max_concurrency"] = string(SourceFlag)
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
		cfg.Sources["log_level"] = string(SourceFlag)
	}
	if o.MetricsFile != "" {
		cfg.MetricsFile = o.MetricsFile
		cfg.Sources["metrics_file"] = string(SourceFlag)
	}
}

// Validate checks the resolved configuration.
func (cfg *Config) Validate() error {
	if cfg.APIURL == "" {
		return errors.New("api_url must not be empty")
	}
	if cfg.OAuthURL == "" {
		return errors.New("oauth_url must not be empty")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive (got %d)", cfg.Timeout)
	}
	if cfg.Limit <= 0 {
		return fmt.Errorf("limit must be positive (got %d)", cfg.Limit)
	}
	if cfg.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must not be negative (got %d)", cfg.MaxConcurrency)
	}
	switch cfg.CredentialStore {
	case StoreFile, StoreKeyring:
	case StoreRedis:
		if cfg.RedisURL == "" {
			return errors.New("credential_store redis requires redis_url")
		}
	default:
		return fmt.Errorf("unknown credential_store %q (want file, keyring or redis)", cfg.CredentialStore)
	}
	if cfg.Cache.Enabled && cfg.RedisURL == "" {
		return errors.New("cache.enabled requires redis_url")
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration returns the request timeout.
func (cfg *Config) TimeoutDuration() time.Duration {
	return time.Duration(cfg.Timeout) * time.Second
}

// CacheTTL returns the response cache lifetime.
func (cfg *Config) CacheTTL() time.Duration {
	return time.Duration(cfg.Cache.TTL) * time.Second
}

// Location resolves local_tz. An empty value means the system zone.
func (cfg *Config) Location() (*time.Location, error) {
	if cfg.LocalTZ == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(cfg.LocalTZ)
	if err != nil {
		return nil, fmt.Errorf("local_tz %q: %w", cfg.LocalTZ, err)
	}
	return loc, nil
}

// Init writes the default configuration to path unless a file exists there.
// It reports whether the file was created.
func Init(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := Default().Save(path); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes cfg to path as YAML.
func (cfg *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Reset replaces the file at path with the defaults. An existing file is kept
// next to it with a .backup suffix, whose path is returned.
func Reset(path string) (string, error) {
	backup := ""
	if _, err := os.Stat(path); err == nil {
		backup = path + ".backup"
		if err := os.Rename(path, backup); err != nil {
			return "", fmt.Errorf("back up config: %w", err)
		}
	}
	if err := Default().Save(path); err != nil {
		return backup, err
	}
	return backup, nil
}

// Path helpers

// Dir returns the jam configuration directory.
func Dir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "jam")
}

// Path returns the configuration file path.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}
