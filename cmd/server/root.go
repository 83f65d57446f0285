package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirebridge/internal/config"
	applog "github.com/vovakirdan/wirebridge/internal/log"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "wirebridge",
	Short: "wirebridge relays chat between IRC channels and WebSocket clients",
	Long: `wirebridge joins IRC channels and relays their messages to WebSocket
clients and back. Without a subcommand it runs the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	addServeFlags(rootCmd)
}

// loadConfig resolves the configuration and builds the logger it asks for.
func loadConfig() (*config.Config, *zerolog.Logger, error) {
	bootLogger := applog.New("info", "console")

	cfg, path, err := config.Load(bootLogger, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := applog.New(cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("path", path).Msg("config loaded")
	return &cfg, logger, nil
}
