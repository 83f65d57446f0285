package store

import (
	"context"
	"errors"
	"time"
)

// ErrAccountNotFound is returned when no account matches the query.
var ErrAccountNotFound = errors.New("account not found")

// ErrUsernameTaken is returned when an account with the username already exists.
var ErrUsernameTaken = errors.New("username taken")

// Account represents a registered bridge account.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	RegisterIP   string
	LoginIP      string
	IsAdmin      bool
	IsBlocked    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountStore handles account persistence.
type AccountStore interface {
	// CreateAccount inserts a new non-admin, unblocked account.
	// Returns ErrUsernameTaken when the username is already registered.
	CreateAccount(ctx context.Context, username, passwordHash, registerIP string) (*Account, error)

	// GetAccountByUsername retrieves an account by username.
	// Returns ErrAccountNotFound when no such account exists.
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)

	// UsernameTaken reports whether an account with this username exists.
	UsernameTaken(ctx context.Context, username string) (bool, error)

	// UpdateLoginIP records the address of the latest successful login.
	UpdateLoginIP(ctx context.Context, username, loginIP string) error

	// SetAdmin toggles the admin flag.
	SetAdmin(ctx context.Context, username string, admin bool) error

	// SetBlocked toggles the blocked flag.
	SetBlocked(ctx context.Context, username string, blocked bool) error

	// ListAccounts lists all accounts ordered by username.
	ListAccounts(ctx context.Context) ([]*Account, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	AccountStore

	// Close closes the underlying database connection.
	Close() error
}
