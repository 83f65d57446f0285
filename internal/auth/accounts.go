package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/wirebridge/internal/store"
)

// Accounts adapts a store.AccountStore to the lookups the bridge core needs,
// keeping password hashing out of the core.
type Accounts struct {
	store store.AccountStore
}

// NewAccounts creates a new account service.
func NewAccounts(accountStore store.AccountStore) *Accounts {
	return &Accounts{store: accountStore}
}

// LookupAccount returns the account matching username and password.
// A missing account or a wrong password yields (nil, nil).
func (a *Accounts) LookupAccount(ctx context.Context, username, password string) (*store.Account, error) {
	acc, err := a.store.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if ComparePassword(acc.PasswordHash, password) != nil {
		return nil, nil
	}
	return acc, nil
}

// AccountExists reports whether the username belongs to an account.
func (a *Accounts) AccountExists(ctx context.Context, username string) (bool, error) {
	return a.store.UsernameTaken(ctx, username)
}

// InsertAccount hashes the secret and stores a new account.
func (a *Accounts) InsertAccount(ctx context.Context, username, secret, registerAddr string) error {
	hash, err := HashPassword(secret)
	if err != nil {
		return err
	}

	if _, err := a.store.CreateAccount(ctx, username, hash, registerAddr); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// RecordLogin stores the address of a successful login.
func (a *Accounts) RecordLogin(ctx context.Context, username, addr string) error {
	return a.store.UpdateLoginIP(ctx, username, addr)
}
