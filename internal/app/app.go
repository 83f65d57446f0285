package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirebridge/internal/auth"
	"github.com/vovakirdan/wirebridge/internal/config"
	"github.com/vovakirdan/wirebridge/internal/core"
	"github.com/vovakirdan/wirebridge/internal/irc"
	"github.com/vovakirdan/wirebridge/internal/metrics"
	"github.com/vovakirdan/wirebridge/internal/store"
	"github.com/vovakirdan/wirebridge/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirebridge/internal/transport/http"
)

// chatNetwork is a chat network the app keeps connected while running.
type chatNetwork interface {
	core.ChatNetwork
	Run(ctx context.Context) error
}

// App wires together core, storage, the IRC side and the HTTP transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	bridge          *core.Bridge
	network         chatNetwork
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	var adminTokens core.AdminTokenIssuer
	if jwtConfig.Enabled() {
		adminTokens = func(username string) (string, error) {
			return auth.GenerateToken(jwtConfig, username, true)
		}
	} else {
		logger.Warn().Msg("jwt_secret not set, admin accounts get no admin api token")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mappings := ChannelMappings(cfg.Channels)

	// The network hands inbound messages to the bridge, which in turn needs
	// the network; bridge is set before the network runs.
	var bridge *core.Bridge
	deliver := func(network, channel, from, text string) {
		bridge.HandleExternal(network, channel, from, text)
	}

	chat, err := newNetwork(cfg.IRC, externalChannels(mappings, cfg.IRC.Network), deliver, logger)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("init irc: %w", err), st.Close())
	}

	bridge, err = core.New(auth.NewAccounts(st), chat, core.Options{
		BacklogSize:      cfg.BacklogSize,
		Mappings:         mappings,
		MasterPassword:   cfg.MasterPassword,
		SignUpToken:      cfg.SignUpToken,
		UsernamePattern:  cfg.UsernamePattern,
		AccountsRequired: cfg.AccountsRequired,
		AdminTokens:      adminTokens,
		Metrics:          metrics.New(registry),
		Logger:           logger,
	})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("init bridge: %w", err), st.Close())
	}

	server := transporthttp.NewServer(bridge, cfg, jwtConfig, registry, logger)

	logger.Info().
		Bool("accounts_required", cfg.AccountsRequired).
		Int("channels", len(mappings)).
		Bool("dry_irc", cfg.IRC.DryRun).
		Msg("bridge configured")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		bridge:          bridge,
		network:         chat,
		store:           st,
		log:             logger,
	}, nil
}

// ChannelMappings converts configured channel pairs to core mappings.
func ChannelMappings(channels []config.ChannelConfig) []core.ChannelMapping {
	out := make([]core.ChannelMapping, 0, len(channels))
	for _, ch := range channels {
		out = append(out, core.ChannelMapping{
			External: core.Channel{Server: ch.External.Server, Name: ch.External.Channel},
			Internal: core.Channel{Server: ch.Internal.Server, Name: ch.Internal.Channel},
		})
	}
	return out
}

func externalChannels(mappings []core.ChannelMapping, network string) []string {
	table, err := core.NewMappingTable(mappings)
	if err != nil {
		return nil
	}
	return table.ExternalChannels(network)
}

func newNetwork(cfg config.IRCConfig, channels []string, deliver irc.Handler, logger *zerolog.Logger) (chatNetwork, error) {
	if cfg.DryRun {
		logger.Warn().Str("network", cfg.Network).Msg("irc dry run, using mock network")
		return irc.NewMock(cfg.Network, channels, deliver, logger, nil), nil
	}
	return irc.NewClient(irc.Config{
		Addr:           cfg.Server,
		Network:        cfg.Network,
		Nick:           cfg.Nick,
		User:           cfg.User,
		Name:           cfg.Name,
		TLS:            cfg.TLS,
		Channels:       channels,
		ReconnectDelay: cfg.ReconnectDelay,
	}, deliver, logger)
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Bridge exposes the core bridge.
func (a *App) Bridge() *core.Bridge {
	return a.bridge
}

// Run starts the HTTP server and the IRC connection and blocks until context
// cancellation or a fatal error.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		err = multierr.Append(err, a.cleanup())
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.network.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// cleanup closes database and other resources.
func (a *App) cleanup() error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
		return fmt.Errorf("close store: %w", err)
	}
	a.log.Info().Msg("store closed")
	return nil
}
