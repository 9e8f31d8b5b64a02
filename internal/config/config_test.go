// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := newTestConfig(t)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "metaxg", cfg.Logger.ServiceName)
	assert.False(t, cfg.Browser.Headless, "login needs a visible window for the CAPTCHA")
	assert.Equal(t, "6578", cfg.Portal.ContractValue)
	assert.Equal(t, 3, cfg.Portal.VerifyPages)
	assert.Equal(t, 40, cfg.Photos.MaxSizeKB)
	assert.Equal(t, 30*time.Minute, cfg.Input.LockStaleAge)
	assert.Equal(t, 125, cfg.Database.CostCenter)
}

func TestValidateRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing login url", func(c *Config) { c.Portal.LoginURL = "" }},
		{"missing contract", func(c *Config) { c.Portal.ContractValue = "" }},
		{"zero verify pages", func(c *Config) { c.Portal.VerifyPages = 0 }},
		{"zero photo budget", func(c *Config) { c.Photos.MaxSizeKB = 0 }},
		{"zero sharepoint concurrency", func(c *Config) { c.SharePoint.Concurrency = 0 }},
		{"negative retroactive days", func(c *Config) { c.Run.RetroactiveDays = -1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Portal.Login = ""
	assert.Error(t, cfg.RequireCredentials())

	cfg.Portal.Login = "user"
	cfg.Portal.Password = "pass"
	cfg.Database.URL = ""
	assert.Error(t, cfg.RequireCredentials())

	cfg.Database.URL = "postgres://localhost/hr"
	assert.NoError(t, cfg.RequireCredentials())
}

func TestSecretEnvBinding(t *testing.T) {
	t.Setenv("METAX_LOGIN", "operador")
	t.Setenv("METAX_PASSWORD", "segredo")
	t.Setenv("PASTA_FOTOS", "/tmp/fotos")

	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "operador", cfg.Portal.Login)
	assert.Equal(t, "segredo", cfg.Portal.Password)
	assert.Equal(t, "/tmp/fotos", cfg.Photos.Dir)
}
