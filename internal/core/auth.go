package core

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/vovakirdan/wirebridge/internal/store"
)

const (
	minPasswordLength = 3
	maxPasswordLength = 1024

	reasonOtherLocation = "logged in from another location"
	msgUsernameTaken    = "this username is already taken"
)

// Register validates a registration request and creates the account. It
// does not log the connection in. The outcome is sent to s as an
// EventAuthResponse.
func (b *Bridge) Register(ctx context.Context, s *Session, req RegisterRequest) {
	logger := b.log.With().Str("conn_id", s.ConnID).Str("addr", s.Addr).Str("username", req.Username).Logger()
	logger.Info().Msg("register request")

	if msg := b.validateRegister(ctx, req); msg != "" {
		logger.Info().Str("reason", msg).Msg("register rejected")
		b.metrics.RegisterAttempt(false)
		b.authFailed(s, msg)
		return
	}

	if err := b.accounts.InsertAccount(ctx, req.Username, req.Password, s.Addr); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			// Lost a race with a concurrent registration of the same name.
			logger.Info().Msg("register rejected, username taken")
			b.metrics.RegisterAttempt(false)
			b.authFailed(s, msgUsernameTaken)
			return
		}
		logger.Error().Err(err).Msg("failed to insert account")
		b.metrics.RegisterAttempt(false)
		b.authFailed(s, "internal error")
		return
	}

	logger.Info().Msg("register success")
	b.metrics.RegisterAttempt(true)
	b.deliver(s, &Event{Kind: EventAuthResponse, Auth: &AuthResult{
		Username: req.Username,
		Success:  true,
		Message:  "Successfully registered! You can now log in!",
	}})
}

// validateRegister returns the rejection message of the first failed check,
// or "" when the request is valid.
func (b *Bridge) validateRegister(ctx context.Context, req RegisterRequest) string {
	if req.Username == "" {
		return "invalid username"
	}
	if req.Password == "" {
		return "invalid password"
	}
	if !b.usernamePattern.MatchString(req.Username) {
		return fmt.Sprintf("username has to match %s", b.usernamePattern)
	}
	if n := utf8.RuneCountInString(req.Password); n < minPasswordLength || n > maxPasswordLength {
		return fmt.Sprintf("password has to be between %d and %d characters long", minPasswordLength, maxPasswordLength)
	}
	if (b.signUpToken != "" && req.Password == b.signUpToken) || (b.masterPassword != "" && req.Password == b.masterPassword) {
		return "please choose a different password"
	}

	taken, err := b.accounts.AccountExists(ctx, req.Username)
	if err != nil {
		b.log.Error().Err(err).Str("username", req.Username).Msg("failed to check username")
		return "internal error"
	}
	if taken {
		return msgUsernameTaken
	}

	if b.signUpToken != "" && req.Token != b.signUpToken {
		return "invalid sign up token"
	}
	return ""
}

// Login authenticates s and joins the requested internal channel. Every
// check runs before the session is touched; the eviction of a conflicting
// session and the claim of the username happen atomically in the registry.
func (b *Bridge) Login(ctx context.Context, s *Session, req AuthRequest) {
	logger := b.log.With().Str("conn_id", s.ConnID).Str("username", req.Username).Logger()

	acc, msg := b.checkLogin(ctx, req)
	if msg != "" {
		logger.Info().Str("reason", msg).Msg("login rejected")
		b.metrics.AuthAttempt(false)
		b.authFailed(s, msg)
		return
	}

	mapping, ok := b.mappings.ByInternal(req.Server, req.Channel)
	if !ok {
		logger.Info().Str("channel", req.Channel).Str("server", req.Server).Msg("join failed, no channel mapping")
		b.metrics.AuthAttempt(false)
		b.authFailed(s, "failed to join channel")
		return
	}

	result := &AuthResult{
		Username: req.Username,
		Admin:    acc != nil && acc.IsAdmin,
		Token:    s.Token,
		Success:  true,
		Message:  "logged in",
	}
	if result.Admin && b.adminTokens != nil {
		token, err := b.adminTokens(req.Username)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to issue admin token")
		} else {
			result.AdminToken = token
		}
	}

	// Holding relayMu keeps live messages from slipping between the backlog
	// snapshot and the subscription.
	b.relayMu.Lock()
	evicted, err := b.registry.Claim(s, req.Username, acc, mapping.Internal, reasonOtherLocation)
	if err != nil {
		b.relayMu.Unlock()
		if errors.Is(err, ErrSessionNotFound) {
			logger.Debug().Msg("session gone before login completed")
			return
		}
		logger.Error().Err(err).Msg("failed to claim username")
		b.authFailed(s, "internal error")
		return
	}
	b.broadcastAll(&Event{Kind: EventUserJoin, User: req.Username})
	b.deliver(s, &Event{Kind: EventAuthResponse, Auth: result})
	b.deliver(s, &Event{Kind: EventBacklog, Messages: b.backlog.ForChannel(mapping.Internal)})
	b.relayMu.Unlock()

	b.metrics.AuthAttempt(true)
	if evicted != nil {
		logger.Info().Str("evicted_conn_id", evicted.ConnID).Msg("logged out previous session")
	}
	if acc != nil {
		logger.Info().Str("channel", mapping.Internal.String()).Msg("logged in to account")
		if err := b.accounts.RecordLogin(ctx, acc.Username, s.Addr); err != nil {
			logger.Warn().Err(err).Msg("failed to record login address")
		}
	} else {
		logger.Info().Str("channel", mapping.Internal.String()).Msg("logged in with master password")
	}
}

// checkLogin runs the credential checks and returns the matched account, or
// the rejection message.
func (b *Bridge) checkLogin(ctx context.Context, req AuthRequest) (*store.Account, string) {
	if req.Username == "" {
		return nil, "invalid username"
	}

	acc, err := b.accounts.LookupAccount(ctx, req.Username, req.Password)
	if err != nil {
		b.log.Error().Err(err).Str("username", req.Username).Msg("failed to look up account")
		return nil, "internal error"
	}

	if !b.validCredentials(req.Password, acc) {
		return nil, "wrong credentials"
	}

	if acc != nil {
		if acc.IsBlocked {
			return nil, "this account is blocked"
		}
		return acc, ""
	}

	taken, err := b.accounts.AccountExists(ctx, req.Username)
	if err != nil {
		b.log.Error().Err(err).Str("username", req.Username).Msg("failed to check username")
		return nil, "internal error"
	}
	if taken {
		return nil, "this username needs a different password"
	}
	return nil, ""
}

// validCredentials accepts anything in open mode; otherwise either the master
// password or a matching account.
func (b *Bridge) validCredentials(password string, acc *store.Account) bool {
	if !b.AccountsRequired() {
		return true
	}
	return (b.masterPassword != "" && password == b.masterPassword) || acc != nil
}

func (b *Bridge) authFailed(s *Session, msg string) {
	b.deliver(s, &Event{Kind: EventAuthResponse, Auth: &AuthResult{
		Success: false,
		Message: msg,
	}})
}
