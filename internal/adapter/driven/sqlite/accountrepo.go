package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/passworder/internal/domain/model"
	"github.com/ericfisherdev/passworder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountStore port interface.
type AccountRepo struct {
	db  *DB
	now func() time.Time
}

// NewAccountRepo creates a new AccountRepo backed by the given DB.
func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db, now: time.Now}
}

// Create inserts a new account and returns it with its assigned ID and
// creation time. Returns ErrAccountAlreadyExists if the username is taken.
func (r *AccountRepo) Create(ctx context.Context, username string, passwordHash []byte) (model.Account, error) {
	const query = `
		INSERT INTO accounts (username, password_hash, created_at) VALUES (?, ?, ?)
		RETURNING id, username, password_hash, created_at`

	account, err := scanAccount(r.db.Writer.QueryRowContext(ctx, query, username, passwordHash, formatTime(r.now())))
	if err != nil {
		if isUniqueViolation(err) {
			return model.Account{}, fmt.Errorf("create account %q: %w", username, driven.ErrAccountAlreadyExists)
		}
		if isCheckViolation(err) {
			return model.Account{}, fmt.Errorf("create account: %w: %w", model.ErrInvalidInput, err)
		}
		return model.Account{}, storageErr(fmt.Sprintf("create account %q", username), err)
	}

	return *account, nil
}

// GetByUsername retrieves an account by exact, case-sensitive username.
// Returns nil, nil if the account does not exist.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	const query = `SELECT id, username, password_hash, created_at FROM accounts WHERE username = ?`

	account, err := scanAccount(r.db.Reader.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("get account %q", username), err)
	}

	return account, nil
}

// GetByID retrieves an account by ID. Returns nil, nil if the account does not exist.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	const query = `SELECT id, username, password_hash, created_at FROM accounts WHERE id = ?`

	account, err := scanAccount(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("get account %d", id), err)
	}

	return account, nil
}

func scanAccount(s scanner) (*model.Account, error) {
	var account model.Account
	var createdAt string

	if err := s.Scan(&account.ID, &account.Username, &account.PasswordHash, &createdAt); err != nil {
		return nil, err
	}

	var err error
	account.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &account, nil
}
