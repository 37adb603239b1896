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
var _ driven.EntryStore = (*EntryRepo)(nil)

const entryColumns = `id, account_id, service, login, encrypted_password, salt, nonce, created_at, updated_at`

// EntryRepo is the SQLite implementation of the EntryStore port interface.
// The sealed secret columns are written and read in the same statement, so a
// row never holds a partial triple.
type EntryRepo struct {
	db  *DB
	now func() time.Time
}

// NewEntryRepo creates a new EntryRepo backed by the given DB.
func NewEntryRepo(db *DB) *EntryRepo {
	return &EntryRepo{db: db, now: time.Now}
}

// Create inserts entry, ignoring its ID and timestamps, and returns the stored row.
func (r *EntryRepo) Create(ctx context.Context, entry model.CredentialEntry) (model.CredentialEntry, error) {
	const query = `
		INSERT INTO credential_entries (
			account_id, service, login, encrypted_password, salt, nonce, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + entryColumns

	now := formatTime(r.now())
	created, err := scanEntry(r.db.Writer.QueryRowContext(ctx, query,
		entry.AccountID, entry.Service, entry.Login,
		entry.Secret.Ciphertext, entry.Secret.Salt, entry.Secret.Nonce,
		now, now,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.CredentialEntry{}, fmt.Errorf("create entry for account %d: %w", entry.AccountID, driven.ErrAccountNotFound)
		}
		if isCheckViolation(err) {
			return model.CredentialEntry{}, fmt.Errorf("create entry for account %d: %w: %w", entry.AccountID, model.ErrInvalidInput, err)
		}
		return model.CredentialEntry{}, storageErr(fmt.Sprintf("create entry for account %d", entry.AccountID), err)
	}

	return *created, nil
}

// ListForAccount returns all entries owned by accountID ordered by ID.
func (r *EntryRepo) ListForAccount(ctx context.Context, accountID int64) ([]model.CredentialEntry, error) {
	const query = `SELECT ` + entryColumns + ` FROM credential_entries WHERE account_id = ? ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, storageErr(fmt.Sprintf("list entries for account %d", accountID), err)
	}
	defer rows.Close()

	entries := []model.CredentialEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, storageErr("scan entry", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate entries", err)
	}

	return entries, nil
}

// GetForAccount returns the entry with entryID if accountID owns it.
// Returns nil, nil otherwise.
func (r *EntryRepo) GetForAccount(ctx context.Context, accountID, entryID int64) (*model.CredentialEntry, error) {
	const query = `SELECT ` + entryColumns + ` FROM credential_entries WHERE id = ? AND account_id = ?`

	entry, err := scanEntry(r.db.Reader.QueryRowContext(ctx, query, entryID, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("get entry %d", entryID), err)
	}

	return entry, nil
}

// Update overwrites service, login and the sealed secret of an existing entry
// and refreshes updated_at. created_at is left untouched.
func (r *EntryRepo) Update(ctx context.Context, entry model.CredentialEntry) (model.CredentialEntry, error) {
	const query = `
		UPDATE credential_entries
		SET service = ?, login = ?, encrypted_password = ?, salt = ?, nonce = ?, updated_at = ?
		WHERE id = ? AND account_id = ?
		RETURNING ` + entryColumns

	updated, err := scanEntry(r.db.Writer.QueryRowContext(ctx, query,
		entry.Service, entry.Login,
		entry.Secret.Ciphertext, entry.Secret.Salt, entry.Secret.Nonce,
		formatTime(r.now()),
		entry.ID, entry.AccountID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return model.CredentialEntry{}, fmt.Errorf("update entry %d: %w", entry.ID, driven.ErrEntryNotFound)
	}
	if isCheckViolation(err) {
		return model.CredentialEntry{}, fmt.Errorf("update entry %d: %w: %w", entry.ID, model.ErrInvalidInput, err)
	}
	if err != nil {
		return model.CredentialEntry{}, storageErr(fmt.Sprintf("update entry %d", entry.ID), err)
	}

	return *updated, nil
}

func scanEntry(s scanner) (*model.CredentialEntry, error) {
	var entry model.CredentialEntry
	var createdAt, updatedAt string

	err := s.Scan(
		&entry.ID, &entry.AccountID, &entry.Service, &entry.Login,
		&entry.Secret.Ciphertext, &entry.Secret.Salt, &entry.Secret.Nonce,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	entry.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &entry, nil
}
