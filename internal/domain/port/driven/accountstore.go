// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/passworder/internal/domain/model"
)

// Sentinel errors returned by AccountStore implementations.
var (
	// ErrAccountAlreadyExists indicates the username is taken. It matches model.ErrConflict.
	ErrAccountAlreadyExists = fmt.Errorf("account already exists: %w", model.ErrConflict)

	// ErrAccountNotFound indicates the referenced account does not exist. It matches model.ErrNotFound.
	ErrAccountNotFound = fmt.Errorf("account not found: %w", model.ErrNotFound)
)

// AccountStore defines the driven port for account persistence.
// Create returns ErrAccountAlreadyExists if the username is taken.
// Lookups return (nil, nil) when no account matches.
type AccountStore interface {
	Create(ctx context.Context, username string, passwordHash []byte) (model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetByID(ctx context.Context, id int64) (*model.Account, error)
}
