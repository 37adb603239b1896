package driven

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/passworder/internal/domain/model"
)

// ErrEntryNotFound indicates the credential entry does not exist for the
// given account. It matches model.ErrNotFound.
var ErrEntryNotFound = fmt.Errorf("credential entry not found: %w", model.ErrNotFound)

// EntryStore defines the driven port for credential entry persistence. It
// stores sealed secrets as opaque bytes and never sees plaintext or keys.
type EntryStore interface {
	// Create inserts entry and returns it with its generated ID and timestamps.
	// Returns ErrAccountNotFound if entry.AccountID does not exist.
	Create(ctx context.Context, entry model.CredentialEntry) (model.CredentialEntry, error)

	// ListForAccount returns all entries owned by accountID ordered by ID.
	ListForAccount(ctx context.Context, accountID int64) ([]model.CredentialEntry, error)

	// GetForAccount returns (nil, nil) if entryID does not exist or belongs to another account.
	GetForAccount(ctx context.Context, accountID, entryID int64) (*model.CredentialEntry, error)

	// Update replaces service, login and the sealed secret of an existing entry
	// and refreshes UpdatedAt. Returns ErrEntryNotFound if no entry matches
	// entry.ID and entry.AccountID.
	Update(ctx context.Context, entry model.CredentialEntry) (model.CredentialEntry, error)
}
