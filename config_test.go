package certs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-acme/lego/v4/lego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		APIToken:        "do-token",
		Domains:         []string{"example.com"},
		MaintainerEmail: "maintainer@example.com",
		SubscriberEmail: "subscriber@example.com",
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"wildcard domain", func(c *Config) { c.Domains = []string{"*.example.com"} }, ""},
		{"subdomain", func(c *Config) { c.Domains = []string{"a.b.example.co.uk"} }, ""},
		{"empty token", func(c *Config) { c.APIToken = "" }, "api_token"},
		{"no domains", func(c *Config) { c.Domains = nil }, "domains"},
		{"spaces in domain", func(c *Config) { c.Domains = []string{"not a domain"} }, "invalid domain"},
		{"bare tld", func(c *Config) { c.Domains = []string{"localhost"} }, "invalid domain"},
		{"inner wildcard", func(c *Config) { c.Domains = []string{"www.*.example.com"} }, "invalid domain"},
		{"missing maintainer", func(c *Config) { c.MaintainerEmail = "" }, "maintainer_email"},
		{"missing subscriber", func(c *Config) { c.SubscriberEmail = "" }, "subscriber_email"},
		{"negative delay", func(c *Config) { c.PropagationDelayMS = -1 }, "propagation_delay_ms"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestDirectoryURL(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, lego.LEDirectoryProduction, cfg.DirectoryURL())

	cfg.Staging = true
	assert.Equal(t, lego.LEDirectoryStaging, cfg.DirectoryURL())
}

func TestPropagationDelayDefaults(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 5*time.Second, cfg.propagationDelay())

	cfg.PropagationDelayMS = 7000
	assert.Equal(t, 7*time.Second, cfg.propagationDelay())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "certs.toml")
	content := `
domains = ["example.com", "*.example.com"]
maintainer_email = "maintainer@example.com"
subscriber_email = "subscriber@example.com"
staging = true
propagation_delay_ms = 7000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CERTS_API_TOKEN", "token-from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "token-from-env", cfg.APIToken)
	assert.Equal(t, []string{"example.com", "*.example.com"}, cfg.Domains)
	assert.True(t, cfg.Staging)
	assert.Equal(t, 7000, cfg.PropagationDelayMS)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "certs.toml")
	content := `
api_token = "token-from-file"
domains = ["example.com"]
maintainer_email = "maintainer@example.com"
subscriber_email = "subscriber@example.com"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CERTS_API_TOKEN", "token-from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "token-from-env", cfg.APIToken)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "certs.toml")
		require.NoError(t, os.WriteFile(path, []byte("domains = ["), 0o600))
		_, err := LoadConfig(path)
		require.Error(t, err)
	})

	t.Run("fails validation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "certs.toml")
		require.NoError(t, os.WriteFile(path, []byte(`domains = ["example.com"]`), 0o600))
		os.Unsetenv("CERTS_API_TOKEN")
		_, err := LoadConfig(path)
		require.Error(t, err)
	})
}
