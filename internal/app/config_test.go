package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LEDGER_COMPANY_ID", "acme")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "acme", cfg.CompanyID)
	require.Equal(t, "memory", cfg.StoreDriver)
	require.Equal(t, "stockledger", cfg.KVPrefix)
	require.True(t, cfg.AllowNegativeStock)
	require.True(t, cfg.AutoReceipt)
	require.False(t, cfg.JobsEnabled)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresCompany(t *testing.T) {
	t.Setenv("LEDGER_COMPANY_ID", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base := Config{CompanyID: "acme", StoreDriver: "memory", RedisAddr: "127.0.0.1:6379"}
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "memory", mutate: func(*Config) {}},
		{name: "blank company", mutate: func(c *Config) { c.CompanyID = "  " }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.StoreDriver = "postgres"; c.PGDSN = "" }, wantErr: true},
		{name: "jobs without redis", mutate: func(c *Config) { c.JobsEnabled = true; c.RedisAddr = "" }, wantErr: true},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimitPerMinute = -1 }, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", CompanyID: "acme", AppEnv: "production"}, &buf).Info("hello")
	require.Contains(t, buf.String(), `"company_id":"acme"`)
	require.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	newLogger(nil, &buf).Info("hello")
	require.Contains(t, buf.String(), "msg=hello")
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(TestModeEnv, "true")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(TestModeEnv, "")
	RefreshTestMode()
	require.False(t, InTestMode())
}
