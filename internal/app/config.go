package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/inboxpilot/folderengine/internal/mailprovider"
	"github.com/inboxpilot/folderengine/internal/services"
)

// Config represents the runtime configuration for the folder engine.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Vault      VaultConfig      `mapstructure:"vault"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures service-to-service authentication settings.
type AuthConfig struct {
	ServiceToken ServiceTokenConfig `mapstructure:"service_token"`
}

// ServiceTokenConfig configures the HS256 bearer tokens accepted on /api.
type ServiceTokenConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// VaultConfig documents encryption requirements for stored OAuth credentials.
type VaultConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
	KeySalt       string `mapstructure:"key_salt"`
}

// ProvidersConfig holds per-provider API settings.
type ProvidersConfig struct {
	Google    ProviderConfig `mapstructure:"google"`
	Microsoft ProviderConfig `mapstructure:"microsoft"`
}

// ProviderConfig configures one provider's API endpoint and retry behaviour.
type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
}

// RetryConfig bounds the retry loop for transient provider failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// ReconcileConfig controls the background reconciliation scheduler.
type ReconcileConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Settings converts the provider sections into the map keyed by provider type
// that the adapter factory consumes.
func (p ProvidersConfig) Settings() map[string]services.ProviderSettings {
	return map[string]services.ProviderSettings{
		mailprovider.ProviderGoogle:    p.Google.settings(),
		mailprovider.ProviderMicrosoft: p.Microsoft.settings(),
	}
}

func (p ProviderConfig) settings() services.ProviderSettings {
	return services.ProviderSettings{
		BaseURL: p.BaseURL,
		Timeout: p.Timeout,
		Retry: mailprovider.RetryPolicy{
			MaxAttempts: p.Retry.MaxAttempts,
			BaseDelay:   p.Retry.BaseDelay,
			MaxDelay:    p.Retry.MaxDelay,
		},
	}
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("FOLDERENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/folderengine.sqlite")

	v.SetDefault("auth.service_token.issuer", "folderengine")

	v.SetDefault("vault.key_salt", "folderengine-credentials")

	v.SetDefault("providers.google.base_url", "https://gmail.googleapis.com/gmail/v1/users/me")
	v.SetDefault("providers.google.timeout", "30s")
	v.SetDefault("providers.google.retry.max_attempts", 4)
	v.SetDefault("providers.google.retry.base_delay", "500ms")
	v.SetDefault("providers.google.retry.max_delay", "8s")

	v.SetDefault("providers.microsoft.base_url", "https://graph.microsoft.com/v1.0/me")
	v.SetDefault("providers.microsoft.timeout", "30s")
	v.SetDefault("providers.microsoft.retry.max_attempts", 3)
	v.SetDefault("providers.microsoft.retry.base_delay", "250ms")
	v.SetDefault("providers.microsoft.retry.max_delay", "5s")

	v.SetDefault("reconcile.enabled", true)
	v.SetDefault("reconcile.schedule", "@every 30m")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
