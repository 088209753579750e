package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// clearEnv unsets every JAM_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"JAM_CLIENT_ID", "JAM_CLIENT_SECRET", "JAM_API_URL", "JAM_OAUTH_URL",
		"JAM_TIMEOUT", "JAM_LIMIT", "JAM_CREDENTIAL_STORE", "JAM_REDIS_URL",
		"JAM_CACHE_ENABLED", "JAM_LOCAL_TZ",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://console.jumpcloud.com/api", cfg.APIURL)
	assert.Equal(t, "https://admin-oauth.id.jumpcloud.com/oauth2/token", cfg.OAuthURL)
	assert.Equal(t, 10, cfg.Timeout)
	assert.Equal(t, 100, cfg.Limit)
	assert.Equal(t, "US/Eastern", cfg.LocalTZ)
	assert.Equal(t, StoreFile, cfg.CredentialStore)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, []string{"ID", "State", "Email", "Employee Type", "Job Title", "Department"}, cfg.ConsoleUserFields.Headers())
	assert.Equal(t, "pretty_state", cfg.ConsoleUserFields[1].Field)
	assert.NotNil(t, cfg.Sources)
	require.NoError(t, cfg.Validate())
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "jam", "config.yaml")

	cfg, err := Load(path, FlagOverrides{})
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, Default().APIURL, cfg.APIURL)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api_url: http://localhost:8080/api
timeout: 30
limit: 500
credential_store: redis
redis_url: redis://localhost:6379/0
cache:
  enabled: true
  ttl: 60
local_tz: Europe/Berlin
console_user_fields:
  Email: email
  ID: id
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, path))

	assert.Equal(t, "http://localhost:8080/api", cfg.APIURL)
	assert.Equal(t, 30, cfg.Timeout)
	assert.Equal(t, 500, cfg.Limit)
	assert.Equal(t, StoreRedis, cfg.CredentialStore)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.Equal(t, "Europe/Berlin", cfg.LocalTZ)

	// Order follows the file, not the alphabet
	assert.Equal(t, []string{"Email", "ID"}, cfg.ConsoleUserFields.Headers())
	assert.Equal(t, []string{"email", "id"}, cfg.ConsoleUserFields.Fields())

	// Untouched keys keep their defaults
	assert.Equal(t, Default().OAuthURL, cfg.OAuthURL)
	assert.Equal(t, Default().CSVUserFields, cfg.CSVUserFields)

	assert.Equal(t, "file", cfg.Sources["api_url"])
	assert.Equal(t, "file", cfg.Sources["cache.ttl"])
	assert.Empty(t, cfg.Sources["oauth_url"])
}

func TestLoadFromFileRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: [not, a, number"), 0o600))

	err := loadFromFile(Default(), path)
	assert.Error(t, err)
}

func TestLoadFromFileRejectsBadFieldMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("console_user_fields:\n  - id\n"), 0o600))

	err := loadFromFile(Default(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field map")
}

func TestLoadFromFileSkipsMissingFile(t *testing.T) {
	cfg := Default()
	require.NoError(t, loadFromFile(cfg, "/nonexistent/path/config.yaml"))
	assert.Equal(t, Default().APIURL, cfg.APIURL)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("JAM_CLIENT_ID", "env-id")
	t.Setenv("JAM_CLIENT_SECRET", "env-secret")
	t.Setenv("JAM_API_URL", "http://env.example.com/api")
	t.Setenv("JAM_TIMEOUT", "5")
	t.Setenv("JAM_LIMIT", "not-a-number")
	t.Setenv("JAM_CACHE_ENABLED", "yes")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, "env-id", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.ClientSecret)
	assert.Equal(t, "http://env.example.com/api", cfg.APIURL)
	assert.Equal(t, 5, cfg.Timeout)
	assert.Equal(t, 100, cfg.Limit, "malformed JAM_LIMIT is ignored")
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "env", cfg.Sources["api_url"])
	assert.Empty(t, cfg.Sources["limit"])
}

func TestPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: http://file/api\nlimit: 50\ntimeout: 20\n"), 0o600))
	t.Setenv("JAM_API_URL", "http://env/api")
	t.Setenv("JAM_LIMIT", "75")

	cfg, err := Load(path, FlagOverrides{Limit: 25})
	require.NoError(t, err)

	assert.Equal(t, "http://env/api", cfg.APIURL)
	assert.Equal(t, 25, cfg.Limit)
	assert.Equal(t, 20, cfg.Timeout)
	assert.Equal(t, "env", cfg.Sources["api_url"])
	assert.Equal(t, "flag", cfg.Sources["limit"])
	assert.Equal(t, "file", cfg.Sources["timeout"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"zero limit", func(c *Config) { c.Limit = 0 }, "limit"},
		{"negative concurrency", func(c *Config) { c.MaxConcurrency = -1 }, "max_concurrency"},
		{"unknown store", func(c *Config) { c.CredentialStore = "vault" }, "credential_store"},
		{"redis store without url", func(c *Config) { c.CredentialStore = StoreRedis }, "redis_url"},
		{"cache without redis", func(c *Config) { c.Cache.Enabled = true }, "redis_url"},
		{"bad timezone", func(c *Config) { c.LocalTZ = "Mars/Olympus" }, "local_tz"},
		{"empty api url", func(c *Config) { c.APIURL = "" }, "api_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	cfg.LocalTZ = "UTC"
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC.String(), loc.String())

	cfg.LocalTZ = ""
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestSaveRoundTripKeepsSecretsOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	loaded := Default()
	loaded.ConsoleUserFields = nil
	require.NoError(t, loadFromFile(loaded, path))
	assert.Equal(t, cfg.ConsoleUserFields, loaded.ConsoleUserFields)
	assert.Equal(t, cfg.ConsoleSystemFields, loaded.ConsoleSystemFields)
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limit: 7\n"), 0o600))

	backup, err := Reset(path)
	require.NoError(t, err)
	assert.Equal(t, path+".backup", backup)

	old, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "limit: 7\n", string(old))

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, path))
	assert.Equal(t, 100, cfg.Limit)
}

func TestResetWithoutExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	backup, err := Reset(path)
	require.NoError(t, err)
	assert.Empty(t, backup)
	assert.FileExists(t, path)
}

func TestFieldMapMarshalKeepsOrder(t *testing.T) {
	m := FieldMap{{"Zeta", "z"}, {"Alpha", "a"}}
	data, err := yaml.Marshal(struct {
		Fields FieldMap `yaml:"fields"`
	}{m})
	require.NoError(t, err)
	assert.Equal(t, "fields:\n    Zeta: z\n    Alpha: a\n", string(data))
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/jam", Dir())
	assert.Equal(t, "/tmp/xdg/jam/config.yaml", Path())
}
