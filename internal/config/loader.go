package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "WIREBRIDGE"
	envConfigDefaultPath = "WIREBRIDGE_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, Sample()); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

// Sample returns the configuration written when no config file exists. Its
// admin token is the forbidden placeholder so a fresh install refuses to
// start until an operator edits it.
func Sample() Config {
	cfg := Default()
	cfg.AdminToken = ForbiddenAdminToken
	cfg.Channels = []ChannelConfig{{
		External: Endpoint{Server: cfg.IRC.Network, Channel: "#wirebridge"},
		Internal: Endpoint{Server: "main", Channel: "general"},
	}}
	return cfg
}

// setDefaults registers every scalar key so env vars can override values
// missing from the config file.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("max_message_bytes", cfg.MaxMessageBytes)

	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("admin_token", cfg.AdminToken)
	v.SetDefault("accounts_password", cfg.MasterPassword)
	v.SetDefault("sign_up_token", cfg.SignUpToken)
	v.SetDefault("accounts_required", cfg.AccountsRequired)
	v.SetDefault("backlog_size", cfg.BacklogSize)
	v.SetDefault("username_pattern", cfg.UsernamePattern)

	v.SetDefault("jwt_secret", cfg.JWTSecret)
	v.SetDefault("jwt_issuer", cfg.JWTIssuer)
	v.SetDefault("jwt_audience", cfg.JWTAudience)
	v.SetDefault("jwt_ttl", cfg.JWTTTL)

	v.SetDefault("admin_rate_limit_rps", cfg.AdminRateLimitRPS)
	v.SetDefault("admin_rate_limit_burst", cfg.AdminRateLimitBurst)

	v.SetDefault("irc.server", cfg.IRC.Server)
	v.SetDefault("irc.network", cfg.IRC.Network)
	v.SetDefault("irc.nick", cfg.IRC.Nick)
	v.SetDefault("irc.user", cfg.IRC.User)
	v.SetDefault("irc.name", cfg.IRC.Name)
	v.SetDefault("irc.tls", cfg.IRC.TLS)
	v.SetDefault("irc.dry_run", cfg.IRC.DryRun)
	v.SetDefault("irc.reconnect_delay", cfg.IRC.ReconnectDelay)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
