package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirebridge/internal/metrics"
	"github.com/vovakirdan/wirebridge/internal/store"
)

// DefaultUsernamePattern restricts registered usernames.
const DefaultUsernamePattern = `^[a-zA-Z0-9_]{1,32}$`

// AccountStore is the account persistence the core depends on.
type AccountStore interface {
	// LookupAccount returns the account matching username and password,
	// or nil when there is none.
	LookupAccount(ctx context.Context, username, password string) (*store.Account, error)
	AccountExists(ctx context.Context, username string) (bool, error)
	InsertAccount(ctx context.Context, username, secret, registerAddr string) error
	RecordLogin(ctx context.Context, username, addr string) error
}

// ChatNetwork is the external chat network the bridge relays to.
type ChatNetwork interface {
	// Network names the single network this client can deliver to.
	Network() string
	// SendToChannel delivers text to a channel and reports success.
	SendToChannel(server, channel, text string) bool
}

// AdminTokenIssuer signs admin API tokens for admin accounts.
type AdminTokenIssuer func(username string) (string, error)

// Options configures a Bridge.
type Options struct {
	BacklogSize      int
	Mappings         []ChannelMapping
	MasterPassword   string
	SignUpToken      string
	UsernamePattern  string
	AccountsRequired bool
	AdminTokens      AdminTokenIssuer
	Clock            clock.Clock
	Metrics          *metrics.Metrics
	Logger           *zerolog.Logger
}

// Bridge owns all shared core state: sessions, backlog, channel mappings and
// the accounts-required switch.
type Bridge struct {
	registry *Registry
	backlog  *Backlog
	mappings *MappingTable
	accounts AccountStore
	network  ChatNetwork

	masterPassword   string
	signUpToken      string
	usernamePattern  *regexp.Regexp
	accountsRequired atomic.Bool
	adminTokens      AdminTokenIssuer

	// relayMu serialises backlog append and fan-out so every session sees
	// messages in backlog order.
	relayMu sync.Mutex

	clock   clock.Clock
	metrics *metrics.Metrics
	log     *zerolog.Logger
}

// New creates a bridge.
func New(accounts AccountStore, network ChatNetwork, opts Options) (*Bridge, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	if network == nil {
		return nil, errors.New("chat network is required")
	}
	if opts.BacklogSize < 1 {
		return nil, fmt.Errorf("backlog size must be positive, got %d", opts.BacklogSize)
	}

	mappings, err := NewMappingTable(opts.Mappings)
	if err != nil {
		return nil, fmt.Errorf("channel mappings: %w", err)
	}

	pattern := opts.UsernamePattern
	if pattern == "" {
		pattern = DefaultUsernamePattern
	}
	usernamePattern, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("username pattern: %w", err)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	b := &Bridge{
		registry:        NewRegistry(clk),
		backlog:         NewBacklog(opts.BacklogSize),
		mappings:        mappings,
		accounts:        accounts,
		network:         network,
		masterPassword:  opts.MasterPassword,
		signUpToken:     opts.SignUpToken,
		usernamePattern: usernamePattern,
		adminTokens:     opts.AdminTokens,
		clock:           clk,
		metrics:         opts.Metrics,
		log:             logger,
	}
	b.accountsRequired.Store(opts.AccountsRequired)
	return b, nil
}

// Connect registers a new connection.
func (b *Bridge) Connect(connID, addr string) (*Session, error) {
	s, err := b.registry.Create(connID, addr)
	if err != nil {
		return nil, err
	}
	b.metrics.SessionsChanged(b.registry.Len())
	b.log.Info().Str("conn_id", connID).Str("addr", addr).Msg("connect")
	return s, nil
}

// Disconnect removes a connection's session. It is idempotent.
func (b *Bridge) Disconnect(connID string) {
	s := b.registry.FindByConnection(connID)
	if !b.registry.Remove(connID) {
		return
	}
	b.metrics.SessionsChanged(b.registry.Len())

	if s != nil && s.Authenticated() {
		b.log.Info().Str("conn_id", connID).Str("username", s.Username()).Msg("user left")
	} else {
		b.log.Info().Str("conn_id", connID).Msg("left before login")
	}
}

// Dispatch executes a client command on behalf of s.
func (b *Bridge) Dispatch(ctx context.Context, s *Session, cmd *Command) {
	switch cmd.Kind {
	case CommandRegister:
		b.Register(ctx, s, cmd.Register)
	case CommandAuth:
		b.Login(ctx, s, cmd.Auth)
	case CommandMessage:
		b.Relay(s, cmd.Message)
	default:
		b.sendError(s, coreError(ErrCodeBadRequest, "unknown command"))
	}
}

// ForceLogoutAll logs out every authenticated session and returns how many
// were logged out.
func (b *Bridge) ForceLogoutAll() int {
	n := 0
	for _, s := range b.registry.Sessions() {
		if !s.Authenticated() {
			continue
		}
		b.log.Info().Str("username", s.Username()).Msg("logging out")
		b.registry.ForceLogout(s, "logged out")
		n++
	}
	return n
}

// SetAccountsRequired switches between accounts mode and open mode.
func (b *Bridge) SetAccountsRequired(required bool) {
	b.accountsRequired.Store(required)
	b.log.Info().Bool("required", required).Msg("accounts required changed")
}

// AccountsRequired reports whether logins must present valid credentials.
func (b *Bridge) AccountsRequired() bool {
	return b.accountsRequired.Load()
}

// Backlog returns the retained messages of all channels, oldest first.
func (b *Bridge) Backlog() []Message {
	return b.backlog.Messages()
}

// SessionCount returns the number of live connections.
func (b *Bridge) SessionCount() int {
	return b.registry.Len()
}

// Registry exposes the session registry.
func (b *Bridge) Registry() *Registry {
	return b.registry
}

// Mappings exposes the channel mapping table.
func (b *Bridge) Mappings() *MappingTable {
	return b.mappings
}

func (b *Bridge) deliver(s *Session, ev *Event) {
	if !s.emit(ev) {
		b.metrics.MessageDropped(metrics.DropSlowConsumer)
		b.log.Warn().Str("conn_id", s.ConnID).Int("kind", int(ev.Kind)).Msg("event queue full, dropping event")
	}
}

func (b *Bridge) broadcastAll(ev *Event) {
	for _, s := range b.registry.Sessions() {
		b.deliver(s, ev)
	}
}

func (b *Bridge) sendError(s *Session, err *CoreError) {
	b.deliver(s, &Event{Kind: EventError, Error: err})
}
