package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/ericfisherdev/passworder/internal/domain/model"
	"github.com/ericfisherdev/passworder/internal/domain/port/driven"
)

// Field limits, matching the storage column widths.
const (
	MaxUsernameLen = 150
	MaxServiceLen  = 200
	MaxLoginLen    = 200
)

// dummyPassword is hashed once so that logins for unknown usernames cost the
// same argon2 work as logins with a wrong password.
const dummyPassword = "passworder-timing-equalizer"

// CredentialSealer seals and opens credential secrets under a master password.
type CredentialSealer interface {
	Seal(plaintext []byte, masterPassword string) (model.SealedSecret, error)
	Open(secret model.SealedSecret, masterPassword string) ([]byte, error)
}

// PasswordVerifier hashes and checks account master passwords.
type PasswordVerifier interface {
	Hash(password string) ([]byte, error)
	Verify(verifier []byte, password string) error
}

// CredentialUpdate lists the fields to change on an entry. Nil fields are kept.
type CredentialUpdate struct {
	Service  *string
	Login    *string
	Password *string
}

// VaultService is the entry point for account and credential operations. It
// runs every derivation through a KDFPool and never logs or retains secrets.
type VaultService struct {
	accounts driven.AccountStore
	entries  driven.EntryStore
	sealer   CredentialSealer
	verifier PasswordVerifier
	pool     *KDFPool
	logger   *slog.Logger

	dummyVerifier func() ([]byte, error)
}

// NewVaultService creates a new VaultService with the required dependencies.
func NewVaultService(
	accounts driven.AccountStore,
	entries driven.EntryStore,
	sealer CredentialSealer,
	verifier PasswordVerifier,
	pool *KDFPool,
	logger *slog.Logger,
) *VaultService {
	return &VaultService{
		accounts:      accounts,
		entries:       entries,
		sealer:        sealer,
		verifier:      verifier,
		pool:          pool,
		logger:        logger,
		dummyVerifier: sync.OnceValues(func() ([]byte, error) { return verifier.Hash(dummyPassword) }),
	}
}

// CreateAccount registers username with a verifier derived from masterPassword.
// Returns an error matching model.ErrConflict if the username is taken.
func (s *VaultService) CreateAccount(ctx context.Context, username, masterPassword string) (model.Account, error) {
	if err := validateUsername(username); err != nil {
		return model.Account{}, err
	}
	if err := requireSecret("master password", masterPassword); err != nil {
		return model.Account{}, err
	}

	var hash []byte
	err := s.pool.Do(ctx, func() error {
		var hashErr error
		hash, hashErr = s.verifier.Hash(masterPassword)
		return hashErr
	})
	if err != nil {
		return model.Account{}, fmt.Errorf("hash master password: %w", err)
	}

	account, err := s.accounts.Create(ctx, username, hash)
	if err != nil {
		return model.Account{}, err
	}

	s.logger.Info("account created", "account_id", account.ID, "username", account.Username)
	return account, nil
}

// Authenticate returns the account for username if masterPassword matches its
// verifier. Unknown usernames and wrong passwords both return
// model.ErrAuthenticationFailed.
func (s *VaultService) Authenticate(ctx context.Context, username, masterPassword string) (model.Account, error) {
	if username == "" || masterPassword == "" {
		return model.Account{}, model.ErrAuthenticationFailed
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return model.Account{}, err
	}

	var blob []byte
	if account != nil {
		blob = account.PasswordHash
	} else {
		blob, err = s.dummyVerifier()
		if err != nil {
			return model.Account{}, fmt.Errorf("prepare dummy verifier: %w", err)
		}
	}

	var verifyErr error
	err = s.pool.Do(ctx, func() error {
		verifyErr = s.verifier.Verify(blob, masterPassword)
		return nil
	})
	if err != nil {
		return model.Account{}, err
	}

	if account == nil || errors.Is(verifyErr, model.ErrAuthenticationFailed) {
		s.logger.Warn("authentication failed", "username", username)
		return model.Account{}, model.ErrAuthenticationFailed
	}
	if verifyErr != nil {
		return model.Account{}, fmt.Errorf("verify account %d: %w: %w", account.ID, model.ErrStorage, verifyErr)
	}

	return *account, nil
}

// AddCredential seals plaintextPassword under masterPassword and stores it as
// a new entry owned by accountID.
func (s *VaultService) AddCredential(
	ctx context.Context,
	accountID int64,
	service, login, plaintextPassword, masterPassword string,
) (model.CredentialEntry, error) {
	service, login = strings.TrimSpace(service), strings.TrimSpace(login)
	if err := requireLabel("service", service, MaxServiceLen); err != nil {
		return model.CredentialEntry{}, err
	}
	if err := requireLabel("login", login, MaxLoginLen); err != nil {
		return model.CredentialEntry{}, err
	}
	if err := requireSecret("password", plaintextPassword); err != nil {
		return model.CredentialEntry{}, err
	}
	if err := requireSecret("master password", masterPassword); err != nil {
		return model.CredentialEntry{}, err
	}

	// Fail before paying for the KDF when the owner does not exist.
	owner, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return model.CredentialEntry{}, err
	}
	if owner == nil {
		return model.CredentialEntry{}, fmt.Errorf("add credential for account %d: %w", accountID, driven.ErrAccountNotFound)
	}

	secret, err := s.seal(ctx, plaintextPassword, masterPassword)
	if err != nil {
		return model.CredentialEntry{}, err
	}

	entry, err := s.entries.Create(ctx, model.CredentialEntry{
		AccountID: accountID,
		Service:   service,
		Login:     login,
		Secret:    secret,
	})
	if err != nil {
		return model.CredentialEntry{}, err
	}

	s.logger.Info("credential added", "account_id", accountID, "entry_id", entry.ID)
	return entry, nil
}

// ListCredentials returns every entry owned by accountID. Secrets stay sealed.
func (s *VaultService) ListCredentials(ctx context.Context, accountID int64) ([]model.CredentialEntry, error) {
	return s.entries.ListForAccount(ctx, accountID)
}

// GetCredential returns a single entry owned by accountID, or an error
// matching model.ErrNotFound.
func (s *VaultService) GetCredential(ctx context.Context, accountID, entryID int64) (model.CredentialEntry, error) {
	entry, err := s.entries.GetForAccount(ctx, accountID, entryID)
	if err != nil {
		return model.CredentialEntry{}, err
	}
	if entry == nil {
		return model.CredentialEntry{}, fmt.Errorf("get credential %d: %w", entryID, driven.ErrEntryNotFound)
	}
	return *entry, nil
}

// RevealCredential opens entry's sealed password with masterPassword.
// Returns model.ErrAuthenticationFailed on a wrong password or tampered data.
func (s *VaultService) RevealCredential(ctx context.Context, entry model.CredentialEntry, masterPassword string) (string, error) {
	if err := requireSecret("master password", masterPassword); err != nil {
		return "", err
	}

	var plaintext []byte
	err := s.pool.Do(ctx, func() error {
		var openErr error
		plaintext, openErr = s.sealer.Open(entry.Secret, masterPassword)
		return openErr
	})
	if err != nil {
		if errors.Is(err, model.ErrAuthenticationFailed) {
			s.logger.Warn("credential reveal failed", "account_id", entry.AccountID, "entry_id", entry.ID)
		}
		return "", err
	}
	defer clear(plaintext)

	return string(plaintext), nil
}

// UpdateCredential applies upd to the entry. A new password is sealed with a
// fresh salt and nonce; masterPassword is only required in that case.
func (s *VaultService) UpdateCredential(
	ctx context.Context,
	accountID, entryID int64,
	upd CredentialUpdate,
	masterPassword string,
) (model.CredentialEntry, error) {
	if upd.Service == nil && upd.Login == nil && upd.Password == nil {
		return model.CredentialEntry{}, model.NewInputError("no fields to update")
	}

	entry, err := s.GetCredential(ctx, accountID, entryID)
	if err != nil {
		return model.CredentialEntry{}, err
	}

	if upd.Service != nil {
		entry.Service = strings.TrimSpace(*upd.Service)
		if err := requireLabel("service", entry.Service, MaxServiceLen); err != nil {
			return model.CredentialEntry{}, err
		}
	}
	if upd.Login != nil {
		entry.Login = strings.TrimSpace(*upd.Login)
		if err := requireLabel("login", entry.Login, MaxLoginLen); err != nil {
			return model.CredentialEntry{}, err
		}
	}
	if upd.Password != nil {
		if err := requireSecret("password", *upd.Password); err != nil {
			return model.CredentialEntry{}, err
		}
		if err := requireSecret("master password", masterPassword); err != nil {
			return model.CredentialEntry{}, err
		}
		entry.Secret, err = s.seal(ctx, *upd.Password, masterPassword)
		if err != nil {
			return model.CredentialEntry{}, err
		}
	}

	updated, err := s.entries.Update(ctx, entry)
	if err != nil {
		return model.CredentialEntry{}, err
	}

	s.logger.Info("credential updated", "account_id", accountID, "entry_id", entryID, "password_changed", upd.Password != nil)
	return updated, nil
}

func (s *VaultService) seal(ctx context.Context, plaintext, masterPassword string) (model.SealedSecret, error) {
	var secret model.SealedSecret
	err := s.pool.Do(ctx, func() error {
		buf := []byte(plaintext)
		defer clear(buf)

		var sealErr error
		secret, sealErr = s.sealer.Seal(buf, masterPassword)
		return sealErr
	})
	if err != nil {
		return model.SealedSecret{}, fmt.Errorf("seal credential: %w", err)
	}
	return secret, nil
}

func validateUsername(username string) error {
	if username != strings.TrimSpace(username) {
		return model.NewInputError("username has surrounding whitespace")
	}
	// HTTP Basic splits user-id and password on the first colon.
	if strings.ContainsFunc(username, func(r rune) bool { return r == ':' || unicode.IsControl(r) }) {
		return model.NewInputError("username must not contain colons or control characters")
	}
	return requireLabel("username", username, MaxUsernameLen)
}

func requireLabel(name, value string, maxLen int) error {
	if value == "" {
		return model.NewInputError("%s is required", name)
	}
	if n := utf8.RuneCountInString(value); n > maxLen {
		return model.NewInputError("%s is %d characters, maximum is %d", name, n, maxLen)
	}
	return nil
}

// requireSecret only checks presence; whitespace is a valid password character.
func requireSecret(name, value string) error {
	if value == "" {
		return model.NewInputError("%s is required", name)
	}
	return nil
}
