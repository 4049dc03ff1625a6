// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the relay and the compose client.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultMaxBodyBytes is 40 MB, the provider's upper bound for a message
// including base64-encoded attachments.
const defaultMaxBodyBytes = 40 << 20

// DefaultSender is used when neither the request nor the configuration
// names a sender.
const DefaultSender = "onboarding@resend.dev"

// Config holds the complete application configuration.
type Config struct {
	Provider  string          `yaml:"provider"`
	Relay     RelayConfig     `yaml:"relay"`
	Resend    ResendConfig    `yaml:"resend"`
	SES       SESConfig       `yaml:"ses"`
	Graph     GraphConfig     `yaml:"graph"`
	TLS       TLSConfig       `yaml:"tls"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Client    ClientConfig    `yaml:"client"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RelayConfig holds the HTTP relay settings.
type RelayConfig struct {
	Listen       string `yaml:"listen"`
	DefaultFrom  string `yaml:"default_from"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// ResendConfig holds the Resend API credentials.
type ResendConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
}

// TLSConfig controls HTTPS on the relay. With Enabled set and no files,
// a self-signed certificate is generated in memory.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// RedisConfig holds the Redis connection used by the rate limiter.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RateLimitConfig holds per-client request limits for the relay.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// ClientConfig holds the compose client's view of the relay.
type ClientConfig struct {
	RelayURL           string        `yaml:"relay_url"`
	APIKey             string        `yaml:"api_key"`
	ClientInfo         string        `yaml:"client_info"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxAttachmentBytes int64         `yaml:"max_attachment_bytes"`
	MaxAttachments     int           `yaml:"max_attachments"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvVars()
	cfg.Provider = strings.ToLower(cfg.Provider)

	return cfg, nil
}

// ResendConfigured returns true if a Resend API key is set.
func (c *Config) ResendConfigured() bool {
	return c.Resend.APIKey != ""
}

// GraphConfigured returns true if all four Graph API credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Graph.Sender != ""
}

// SESConfigured returns true if the SES region and sender are set.
// Credentials are optional and fall back to the default AWS chain.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != ""
}

// RateLimitEnabled returns true if rate limiting is on and Redis is reachable
// by address.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimit.Enabled && c.Redis.Addr != "" && c.RateLimit.Requests > 0
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Relay.Listen = ":8787"
	c.Relay.DefaultFrom = DefaultSender
	c.Relay.MaxBodyBytes = defaultMaxBodyBytes
	c.RateLimit.Requests = 30
	c.RateLimit.Window = time.Minute
	c.Client.RelayURL = "http://localhost:8787/send-email"
	c.Client.ClientInfo = "mailrelay-cli"
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Telemetry.ServiceName = "mailrelay"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	setString(&c.Relay.Listen, "RELAY_LISTEN")
	setString(&c.Relay.DefaultFrom, "RELAY_DEFAULT_FROM")
	setInt64(&c.Relay.MaxBodyBytes, "RELAY_MAX_BODY_BYTES")

	setString(&c.Resend.APIKey, "RESEND_API_KEY")
	setString(&c.Resend.BaseURL, "RESEND_BASE_URL")

	setString(&c.SES.Region, "SES_REGION")
	setString(&c.SES.AccessKeyID, "SES_ACCESS_KEY_ID")
	setString(&c.SES.SecretAccessKey, "SES_SECRET_ACCESS_KEY")
	setString(&c.SES.Sender, "SES_SENDER")

	setString(&c.Graph.TenantID, "GRAPH_TENANT_ID")
	setString(&c.Graph.ClientID, "GRAPH_CLIENT_ID")
	setString(&c.Graph.ClientSecret, "GRAPH_CLIENT_SECRET")
	setString(&c.Graph.Sender, "GRAPH_SENDER")

	setBool(&c.TLS.Enabled, "TLS_ENABLED")
	setString(&c.TLS.CertFile, "TLS_CERT_FILE")
	setString(&c.TLS.KeyFile, "TLS_KEY_FILE")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}

	setBool(&c.RateLimit.Enabled, "RATE_LIMIT_ENABLED")
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.Requests = n
		}
	}
	setDuration(&c.RateLimit.Window, "RATE_LIMIT_WINDOW")

	setString(&c.Client.RelayURL, "RELAY_URL")
	setString(&c.Client.APIKey, "RELAY_API_KEY")
	setString(&c.Client.ClientInfo, "RELAY_CLIENT_INFO")
	setDuration(&c.Client.Timeout, "RELAY_TIMEOUT")
	setInt64(&c.Client.MaxAttachmentBytes, "MAX_ATTACHMENT_BYTES")
	if v := os.Getenv("MAX_ATTACHMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Client.MaxAttachments = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}

	setBool(&c.Telemetry.Enabled, "OTEL_ENABLED")
	setString(&c.Telemetry.ServiceName, "OTEL_SERVICE_NAME")
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, env string) {
	if v := os.Getenv(env); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
