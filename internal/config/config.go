package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// ForbiddenAdminToken is the placeholder admin token shipped in sample
// configs. The server refuses to start with it.
const ForbiddenAdminToken = "xxx"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`

	DatabasePath     string `mapstructure:"database_path" yaml:"database_path"`
	AdminToken       string `mapstructure:"admin_token" yaml:"admin_token"`
	MasterPassword   string `mapstructure:"accounts_password" yaml:"accounts_password"`
	SignUpToken      string `mapstructure:"sign_up_token" yaml:"sign_up_token"`
	AccountsRequired bool   `mapstructure:"accounts_required" yaml:"accounts_required"`
	BacklogSize      int    `mapstructure:"backlog_size" yaml:"backlog_size"`
	UsernamePattern  string `mapstructure:"username_pattern" yaml:"username_pattern"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	AdminRateLimitRPS   float64 `mapstructure:"admin_rate_limit_rps" yaml:"admin_rate_limit_rps"`
	AdminRateLimitBurst int     `mapstructure:"admin_rate_limit_burst" yaml:"admin_rate_limit_burst"`

	IRC      IRCConfig       `mapstructure:"irc" yaml:"irc"`
	Channels []ChannelConfig `mapstructure:"channels" yaml:"channels"`
}

// IRCConfig describes the external IRC connection.
type IRCConfig struct {
	Server         string        `mapstructure:"server" yaml:"server"`
	Network        string        `mapstructure:"network" yaml:"network"`
	Nick           string        `mapstructure:"nick" yaml:"nick"`
	User           string        `mapstructure:"user" yaml:"user"`
	Name           string        `mapstructure:"name" yaml:"name"`
	TLS            bool          `mapstructure:"tls" yaml:"tls"`
	DryRun         bool          `mapstructure:"dry_run" yaml:"dry_run"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay" yaml:"reconnect_delay"`
}

// Endpoint names a channel on a server or network.
type Endpoint struct {
	Server  string `mapstructure:"server" yaml:"server"`
	Channel string `mapstructure:"channel" yaml:"channel"`
}

// ChannelConfig maps one external channel to one internal channel.
type ChannelConfig struct {
	External Endpoint `mapstructure:"external" yaml:"external"`
	Internal Endpoint `mapstructure:"internal" yaml:"internal"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                ":8080",
		ReadHeaderTimeout:   5 * time.Second,
		ShutdownTimeout:     5 * time.Second,
		LogLevel:            "info",
		LogFormat:           "console",
		MaxMessageBytes:     64 * 1024,
		DatabasePath:        "wirebridge.db",
		AccountsRequired:    false,
		BacklogSize:         100,
		UsernamePattern:     `^[a-zA-Z0-9_]{1,32}$`,
		JWTIssuer:           "wirebridge",
		JWTAudience:         "wirebridge-admin",
		JWTTTL:              24 * time.Hour,
		AdminRateLimitRPS:   1,
		AdminRateLimitBurst: 5,
		IRC: IRCConfig{
			Server:         "irc.quakenet.org:6667",
			Network:        "quakenet",
			Nick:           "wirebridge",
			User:           "wirebridge",
			Name:           "wirebridge relay",
			DryRun:         false,
			ReconnectDelay: 5 * time.Second,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.AdminToken != "" {
		c.AdminToken = other.AdminToken
	}
	if other.MasterPassword != "" {
		c.MasterPassword = other.MasterPassword
	}
	if other.BacklogSize != 0 {
		c.BacklogSize = other.BacklogSize
	}
}

// Validate reports configuration that must stop the server from starting.
func (c *Config) Validate() error {
	var err error
	switch c.AdminToken {
	case "":
		err = multierr.Append(err, errors.New("admin_token is required"))
	case ForbiddenAdminToken:
		err = multierr.Append(err, fmt.Errorf("admin_token must not be %q", ForbiddenAdminToken))
	}
	if c.MasterPassword == "" {
		err = multierr.Append(err, errors.New("accounts_password is required"))
	}
	if c.BacklogSize < 1 {
		err = multierr.Append(err, fmt.Errorf("backlog_size must be at least 1, got %d", c.BacklogSize))
	}
	if len(c.Channels) == 0 {
		err = multierr.Append(err, errors.New("at least one channel mapping is required"))
	}
	for i, ch := range c.Channels {
		if ch.External.Server == "" || ch.External.Channel == "" || ch.Internal.Server == "" || ch.Internal.Channel == "" {
			err = multierr.Append(err, fmt.Errorf("channels[%d]: external and internal server and channel are required", i))
		}
	}
	if !c.IRC.DryRun && c.IRC.Server == "" {
		err = multierr.Append(err, errors.New("irc.server is required unless irc.dry_run is set"))
	}
	return err
}
