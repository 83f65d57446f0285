package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirebridge/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and makes sure the accounts table exists.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without touching the filesystem.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps
	// ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const accountColumns = `id, username, password_hash, register_ip, login_ip, is_admin, is_blocked, created_at, updated_at`

// CreateAccount inserts a new non-admin, unblocked account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, username, passwordHash, registerIP string) (*store.Account, error) {
	query := `
		INSERT INTO accounts (username, password_hash, register_ip, login_ip, is_admin, is_blocked)
		VALUES (?, ?, ?, ?, 0, 0)
	`
	if _, err := s.db.ExecContext(ctx, query, username, passwordHash, registerIP, registerIP); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, store.ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return s.GetAccountByUsername(ctx, username)
}

// GetAccountByUsername retrieves an account by username.
func (s *SQLiteStore) GetAccountByUsername(ctx context.Context, username string) (*store.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = ?`

	var acc store.Account
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&acc.ID,
		&acc.Username,
		&acc.PasswordHash,
		&acc.RegisterIP,
		&acc.LoginIP,
		&acc.IsAdmin,
		&acc.IsBlocked,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}

	return &acc, nil
}

// UsernameTaken reports whether an account with this username exists.
func (s *SQLiteStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = ?)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query username: %w", err)
	}
	return exists, nil
}

// UpdateLoginIP records the address of the latest successful login.
func (s *SQLiteStore) UpdateLoginIP(ctx context.Context, username, loginIP string) error {
	return s.updateAccount(ctx, `UPDATE accounts SET login_ip = ?, updated_at = CURRENT_TIMESTAMP WHERE username = ?`, loginIP, username)
}

// SetAdmin toggles the admin flag.
func (s *SQLiteStore) SetAdmin(ctx context.Context, username string, admin bool) error {
	return s.updateAccount(ctx, `UPDATE accounts SET is_admin = ?, updated_at = CURRENT_TIMESTAMP WHERE username = ?`, admin, username)
}

// SetBlocked toggles the blocked flag.
func (s *SQLiteStore) SetBlocked(ctx context.Context, username string, blocked bool) error {
	return s.updateAccount(ctx, `UPDATE accounts SET is_blocked = ?, updated_at = CURRENT_TIMESTAMP WHERE username = ?`, blocked, username)
}

func (s *SQLiteStore) updateAccount(ctx context.Context, query string, value any, username string) error {
	result, err := s.db.ExecContext(ctx, query, value, username)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrAccountNotFound
	}
	return nil
}

// ListAccounts lists all accounts ordered by username.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*store.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*store.Account
	for rows.Next() {
		var acc store.Account
		if err := rows.Scan(
			&acc.ID,
			&acc.Username,
			&acc.PasswordHash,
			&acc.RegisterIP,
			&acc.LoginIP,
			&acc.IsAdmin,
			&acc.IsBlocked,
			&acc.CreatedAt,
			&acc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, &acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
