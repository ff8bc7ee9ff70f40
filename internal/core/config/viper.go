package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override (SIREN_HTTP_PORT, ...).
const EnvPrefix = "SIREN"

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	return load(viper.New(), configPath)
}

// LoadConfigWith loads configuration into an existing viper instance, so
// callers can bind CLI flags (viper.BindPFlag) before loading.
func LoadConfigWith(v *viper.Viper, configPath string) (*ServiceConfig, error) {
	return load(v, configPath)
}

func load(v *viper.Viper, configPath string) (*ServiceConfig, error) {
	d := DefaultServiceConfig()
	v.SetDefault("http.host", d.HTTP.Host)
	v.SetDefault("http.port", d.HTTP.Port)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout.String())
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout.String())
	v.SetDefault("grpc.host", d.GRPC.Host)
	v.SetDefault("grpc.port", d.GRPC.Port)
	v.SetDefault("grpc.request_timeout", d.GRPC.RequestTimeout.String())
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("siren.max_depth", d.Siren.MaxDepth)
	v.SetDefault("siren.inherit_class_suppression", false)
	v.SetDefault("require_auth", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		HTTP: HTTPConfig{
			Host:         v.GetString("http.host"),
			Port:         v.GetInt("http.port"),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
		},
		GRPC: GRPCConfig{
			Host:           v.GetString("grpc.host"),
			Port:           v.GetInt("grpc.port"),
			RequestTimeout: v.GetDuration("grpc.request_timeout"),
		},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Siren: SirenConfig{
			MaxDepth:                v.GetInt("siren.max_depth"),
			InheritClassSuppression: v.GetBool("siren.inherit_class_suppression"),
		},
		RequireAuth: v.GetBool("require_auth"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port ranges, positive timeouts and depth.
func validateConfig(cfg *ServiceConfig) error {
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", cfg.HTTP.Port)
	}
	// grpc.port 0 disables the gRPC endpoint
	if cfg.GRPC.Port < 0 || cfg.GRPC.Port > 65535 {
		return fmt.Errorf("grpc.port must be between 0 and 65535, got %d", cfg.GRPC.Port)
	}
	if cfg.GRPC.Enabled() && cfg.GRPC.Port == cfg.HTTP.Port && cfg.GRPC.Host == cfg.HTTP.Host {
		return fmt.Errorf("grpc and http cannot share %s", cfg.HTTP.Addr())
	}
	if cfg.HTTP.ReadTimeout <= 0 || cfg.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive, got read=%v write=%v", cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
	}
	if cfg.GRPC.RequestTimeout <= 0 {
		return fmt.Errorf("grpc.request_timeout must be positive, got %v", cfg.GRPC.RequestTimeout)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if cfg.Siren.MaxDepth <= 0 {
		return fmt.Errorf("siren.max_depth must be positive, got %d", cfg.Siren.MaxDepth)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("http.hmac_secret") || v.InConfig("grpc.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use SIREN_HMAC_SECRET environment variable)")
	}
	return nil
}
