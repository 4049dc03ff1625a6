package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnvVars = []string{
	"PROVIDER",
	"RELAY_LISTEN", "RELAY_DEFAULT_FROM", "RELAY_MAX_BODY_BYTES",
	"RESEND_API_KEY", "RESEND_BASE_URL",
	"SES_REGION", "SES_ACCESS_KEY_ID", "SES_SECRET_ACCESS_KEY", "SES_SENDER",
	"GRAPH_TENANT_ID", "GRAPH_CLIENT_ID", "GRAPH_CLIENT_SECRET", "GRAPH_SENDER",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW",
	"RELAY_URL", "RELAY_API_KEY", "RELAY_CLIENT_INFO", "RELAY_TIMEOUT",
	"MAX_ATTACHMENT_BYTES", "MAX_ATTACHMENTS",
	"LOG_LEVEL", "LOG_FORMAT", "OTEL_ENABLED", "OTEL_SERVICE_NAME",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range allEnvVars {
		t.Setenv(env, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Provider)
	assert.Equal(t, ":8787", cfg.Relay.Listen)
	assert.Equal(t, "onboarding@resend.dev", cfg.Relay.DefaultFrom)
	assert.EqualValues(t, 40<<20, cfg.Relay.MaxBodyBytes)
	assert.Empty(t, cfg.Resend.APIKey)
	assert.False(t, cfg.TLS.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 30, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "http://localhost:8787/send-email", cfg.Client.RelayURL)
	assert.Equal(t, "mailrelay-cli", cfg.Client.ClientInfo)
	assert.Zero(t, cfg.Client.Timeout)
	assert.Zero(t, cfg.Client.MaxAttachments)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "mailrelay", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER", "RESEND")
	t.Setenv("RELAY_LISTEN", ":9000")
	t.Setenv("RELAY_DEFAULT_FROM", "team@example.com")
	t.Setenv("RELAY_MAX_BODY_BYTES", "1048576")
	t.Setenv("RESEND_API_KEY", "re_test_123")
	t.Setenv("RESEND_BASE_URL", "http://resend.local/")
	t.Setenv("SES_REGION", "us-east-1")
	t.Setenv("SES_SENDER", "ses@example.com")
	t.Setenv("GRAPH_TENANT_ID", "tid-123")
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_FILE", "/certs/cert.pem")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("RATE_LIMIT_ENABLED", "1")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("RELAY_URL", "https://relay.example.com/send-email")
	t.Setenv("RELAY_API_KEY", "anon-key")
	t.Setenv("RELAY_TIMEOUT", "10s")
	t.Setenv("MAX_ATTACHMENT_BYTES", "2048")
	t.Setenv("MAX_ATTACHMENTS", "3")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "Console")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "resend", cfg.Provider)
	assert.Equal(t, ":9000", cfg.Relay.Listen)
	assert.Equal(t, "team@example.com", cfg.Relay.DefaultFrom)
	assert.EqualValues(t, 1048576, cfg.Relay.MaxBodyBytes)
	assert.Equal(t, "re_test_123", cfg.Resend.APIKey)
	assert.Equal(t, "http://resend.local/", cfg.Resend.BaseURL)
	assert.Equal(t, "us-east-1", cfg.SES.Region)
	assert.Equal(t, "ses@example.com", cfg.SES.Sender)
	assert.Equal(t, "tid-123", cfg.Graph.TenantID)
	assert.True(t, cfg.TLS.Enabled)
	assert.Equal(t, "/certs/cert.pem", cfg.TLS.CertFile)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "https://relay.example.com/send-email", cfg.Client.RelayURL)
	assert.Equal(t, "anon-key", cfg.Client.APIKey)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
	assert.EqualValues(t, 2048, cfg.Client.MaxAttachmentBytes)
	assert.Equal(t, 3, cfg.Client.MaxAttachments)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoad_InvalidNumbersKeepDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("RELAY_MAX_BODY_BYTES", "not-a-number")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")
	t.Setenv("TLS_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.EqualValues(t, 40<<20, cfg.Relay.MaxBodyBytes)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.TLS.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	yamlContent := `
provider: ses
relay:
  listen: ":3000"
  default_from: "yaml@example.com"
resend:
  api_key: "re_yaml"
ses:
  region: "eu-west-1"
  sender: "ses@example.com"
rate_limit:
  enabled: true
  requests: 10
  window: 2m
redis:
  addr: "redis:6379"
client:
  relay_url: "http://yaml-relay/send-email"
  timeout: 5s
logging:
  level: "warn"
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	clearEnv(t)

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, "ses", cfg.Provider)
	assert.Equal(t, ":3000", cfg.Relay.Listen)
	assert.Equal(t, "yaml@example.com", cfg.Relay.DefaultFrom)
	assert.Equal(t, "re_yaml", cfg.Resend.APIKey)
	assert.Equal(t, "eu-west-1", cfg.SES.Region)
	assert.True(t, cfg.RateLimitEnabled())
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "http://yaml-relay/send-email", cfg.Client.RelayURL)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, "mailrelay-cli", cfg.Client.ClientInfo)
}

func TestLoadFromFile_EnvOverridesYAML(t *testing.T) {
	yamlContent := `
relay:
  listen: ":3000"
  default_from: "yaml@example.com"
logging:
  level: "warn"
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	clearEnv(t)
	t.Setenv("RELAY_LISTEN", ":9000")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Relay.Listen, "env should override YAML")
	assert.Equal(t, "yaml@example.com", cfg.Relay.DefaultFrom, "empty env should not override YAML")
	assert.Equal(t, "error", cfg.Logging.Level, "env should override YAML")
}

func TestLoadFromFile_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{{invalid yaml"), 0644))

	_, err := LoadFromFile(configPath)
	assert.Error(t, err)
}

func TestGraphConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		graph  GraphConfig
		expect bool
	}{
		{"all set", GraphConfig{TenantID: "t", ClientID: "c", ClientSecret: "s", Sender: "sender@example.com"}, true},
		{"missing tenant_id", GraphConfig{ClientID: "c", ClientSecret: "s", Sender: "sender@example.com"}, false},
		{"missing client_secret", GraphConfig{TenantID: "t", ClientID: "c", Sender: "sender@example.com"}, false},
		{"missing sender", GraphConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"}, false},
		{"none set", GraphConfig{}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{Graph: tt.graph}
			assert.Equal(t, tt.expect, cfg.GraphConfigured())
		})
	}
}

func TestSESConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ses    SESConfig
		expect bool
	}{
		{"region and sender set", SESConfig{Region: "us-east-1", Sender: "ses@example.com"}, true},
		{"missing region", SESConfig{Sender: "ses@example.com"}, false},
		{"missing sender", SESConfig{Region: "us-east-1"}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{SES: tt.ses}
			assert.Equal(t, tt.expect, cfg.SESConfigured())
		})
	}
}

func TestRateLimitEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    Config
		expect bool
	}{
		{"enabled with redis", Config{RateLimit: RateLimitConfig{Enabled: true, Requests: 5}, Redis: RedisConfig{Addr: "r:6379"}}, true},
		{"enabled without redis", Config{RateLimit: RateLimitConfig{Enabled: true, Requests: 5}}, false},
		{"disabled", Config{RateLimit: RateLimitConfig{Requests: 5}, Redis: RedisConfig{Addr: "r:6379"}}, false},
		{"zero requests", Config{RateLimit: RateLimitConfig{Enabled: true}, Redis: RedisConfig{Addr: "r:6379"}}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, tt.cfg.RateLimitEnabled())
		})
	}
}

func TestResendConfigured(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Config{Resend: ResendConfig{APIKey: "re_x"}}).ResendConfigured())
	assert.False(t, (&Config{}).ResendConfigured())
}
