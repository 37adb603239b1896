package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/passworder/internal/domain/crypto"
	"github.com/ericfisherdev/passworder/internal/domain/model"
	"github.com/ericfisherdev/passworder/internal/domain/port/driven"
)

// --- In-memory store implementations ---

type memAccountStore struct {
	mu       sync.Mutex
	accounts []model.Account
	err      error
}

func (m *memAccountStore) Create(_ context.Context, username string, hash []byte) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.Account{}, m.err
	}
	for _, a := range m.accounts {
		if a.Username == username {
			return model.Account{}, driven.ErrAccountAlreadyExists
		}
	}
	a := model.Account{ID: int64(len(m.accounts) + 1), Username: username, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	m.accounts = append(m.accounts, a)
	return a, nil
}

func (m *memAccountStore) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, a := range m.accounts {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memAccountStore) GetByID(_ context.Context, id int64) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, a := range m.accounts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

type memEntryStore struct {
	mu      sync.Mutex
	entries []model.CredentialEntry
	creates int
}

func (m *memEntryStore) Create(_ context.Context, e model.CredentialEntry) (model.CredentialEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	now := time.Now().UTC()
	e.ID = int64(len(m.entries) + 1)
	e.CreatedAt, e.UpdatedAt = now, now
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *memEntryStore) ListForAccount(_ context.Context, accountID int64) ([]model.CredentialEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.CredentialEntry{}
	for _, e := range m.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEntryStore) GetForAccount(_ context.Context, accountID, entryID int64) (*model.CredentialEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == entryID && e.AccountID == accountID {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *memEntryStore) Update(_ context.Context, e model.CredentialEntry) (model.CredentialEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.entries {
		if existing.ID == e.ID && existing.AccountID == e.AccountID {
			e.CreatedAt = existing.CreatedAt
			e.UpdatedAt = existing.UpdatedAt.Add(time.Second)
			m.entries[i] = e
			return e, nil
		}
	}
	return model.CredentialEntry{}, driven.ErrEntryNotFound
}

// --- Helpers ---

type testEnv struct {
	svc      *VaultService
	accounts *memAccountStore
	entries  *memEntryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sealer, err := crypto.NewSealer(crypto.Config{SaltSize: 16, Iterations: 1000, Algorithm: crypto.AlgorithmAESGCM})
	require.NoError(t, err)
	verifier, err := crypto.NewVerifier(crypto.VerifierParams{Time: 1, Memory: 1024, Threads: 1})
	require.NoError(t, err)

	env := &testEnv{accounts: &memAccountStore{}, entries: &memEntryStore{}}
	env.svc = NewVaultService(env.accounts, env.entries, sealer, verifier, NewKDFPool(2), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return env
}

func strPtr(s string) *string { return &s }

const (
	aliceMaster   = "correct horse battery staple"
	alicePassword = "Tr0ub4dor&3"
)

// --- Tests ---

func TestVaultService_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, err := env.svc.CreateAccount(ctx, "alice", aliceMaster)
	require.NoError(t, err)
	assert.NotEqual(t, []byte(aliceMaster), alice.PasswordHash)

	entry, err := env.svc.AddCredential(ctx, alice.ID, "example.com", "alice@example.com", alicePassword, aliceMaster)
	require.NoError(t, err)
	assert.Len(t, entry.Secret.Salt, 16)
	assert.Len(t, entry.Secret.Nonce, 12)
	assert.GreaterOrEqual(t, len(entry.Secret.Ciphertext), 16)

	revealed, err := env.svc.RevealCredential(ctx, entry, aliceMaster)
	require.NoError(t, err)
	assert.Equal(t, alicePassword, revealed)

	_, err = env.svc.RevealCredential(ctx, entry, "wrong password")
	assert.ErrorIs(t, err, model.ErrAuthenticationFailed)

	listed, err := env.svc.ListCredentials(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, entry.Secret, listed[0].Secret)
}

func TestVaultService_IdenticalInputsProduceDistinctTriples(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, err := env.svc.CreateAccount(ctx, "alice", aliceMaster)
	require.NoError(t, err)

	a, err := env.svc.AddCredential(ctx, alice.ID, "example.com", "alice", alicePassword, aliceMaster)
	require.NoError(t, err)
	b, err := env.svc.AddCredential(ctx, alice.ID, "example.com", "alice", alicePassword, aliceMaster)
	require.NoError(t, err)

	assert.NotEqual(t, a.Secret.Salt, b.Secret.Salt)
	assert.NotEqual(t, a.Secret.Nonce, b.Secret.Nonce)
	assert.NotEqual(t, a.Secret.Ciphertext, b.Secret.Ciphertext)
}

func TestVaultService_CreateAccount_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateAccount(ctx, "alice", aliceMaster)
	require.NoError(t, err)

	_, err = env.svc.CreateAccount(ctx, "alice", "another")
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestVaultService_CreateAccount_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		master   string
	}{
		{name: "empty username", username: "", master: aliceMaster},
		{name: "padded username", username: " alice ", master: aliceMaster},
		{name: "colon in username", username: "bob:smith", master: aliceMaster},
		{name: "control character in username", username: "bob\tsmith", master: aliceMaster},
		{name: "long username", username: strings.Repeat("a", MaxUsernameLen+1), master: aliceMaster},
		{name: "empty master", username: "alice", master: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateAccount(ctx, tt.username, tt.master)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}
	assert.Empty(t, env.accounts.accounts)
}

func TestVaultService_Authenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateAccount(ctx, "alice", aliceMaster)
	require.NoError(t, err)

	got, err := env.svc.Authenticate(ctx, "alice", aliceMaster)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = env.svc.Authenticate(ctx, "alice", "wrong password")
	assert.ErrorIs(t, err, model.ErrAuthenticationFailed)

	_, err = env.svc.Authenticate(ctx, "mallory", aliceMaster)
	assert.ErrorIs(t, err, model.ErrAuthenticationFailed)

	_, err = env.svc.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, model.ErrAuthenticationFailed)
}

func TestVaultService_Authenticate_CorruptVerifier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.accounts.Create(ctx, "alice", []byte("not-a-verifier"))
	require.NoError(t, err)

	_, err = env.svc.Authenticate(ctx, "alice", aliceMaster)
	assert.ErrorIs(t, err, model.ErrStorage)
	assert.NotErrorIs(t, err, model.ErrAuthenticationFailed)
}

func TestVaultService_StorageFailurePropagates(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.err = errors.Join(model.ErrStorage, errors.New("disk gone"))

	_, err := env.svc.CreateAccount(context.Background(), "alice", aliceMaster)
	assert.ErrorIs(t, err, model.ErrStorage)

	_, err = env.svc.Authenticate(context.Background(), "alice", aliceMaster)
	assert.ErrorIs(t, err, model.ErrStorage)
}

func TestVaultService_AddCredential_UnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.AddCredential(context.Background(), 42, "example.com", "x", alicePassword, aliceMaster)
	assert.ErrorIs(t, err, driven.ErrAccountNotFound)
	assert.Zero(t, env.entries.creates)
}

func TestVaultService_AddCredential_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, err := env.svc.CreateAccount(ctx, "alice", aliceMaster)
	require.NoError(t, err)

	tests := []struct {
		name                             string
		service, login, password, master string
	}{
		{name: "blank service", service: "   ", login: "a", password: "p", master: aliceMaster},
		{name: "blank login", service: "s", login: "", password: "p", master: aliceMaster},
		{name: "long service", service: strings.Repeat("s", MaxServiceLen+1), login: "a", password: "p", master: aliceMaster},
		{name: "long login", service: "s", login: strings.Repeat("l", MaxLoginLen+1), password: "p", master: aliceMaster},
		{name: "empty password", service: "s", login: "a", password: "", master: aliceMaster},
		{name: "empty master", service: "s", login: "a", password: "p", master: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.AddCredential(ctx, alice.ID, tt.service, tt.login, tt.password, tt.master)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}
	assert.Zero(t, env.entries.creates)
}

func TestVaultService_AddCredential_TrimsLabels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, err := env.svc.CreateAccount(ctx, "alice", aliceMaster)
	require.NoError(t, err)

	entry, err := env.svc.AddCredential(ctx, alice.ID, "  example.com ", "\talice\n", " pass with spaces ", aliceMaster)
	require.NoError(t, err)
	assert.Equal(t, "example.com", entry.Service)
	assert.Equal(t, "alice", entry.Login)

	revealed, err := env.svc.RevealCredential(ctx, entry, aliceMaster)
	require.NoError(t, err)
	assert.Equal(t, " pass with spaces ", revealed, "passwords are never trimmed")
}

func TestVaultService_RevealCredential_Tampered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, err := env.svc.CreateAccount(ctx, "alice", aliceMaster)
	require.NoError(t, err)
	entry, err := env.svc.AddCredential(ctx, alice.ID, "example.com", "alice", alicePassword, aliceMaster)
	require.NoError(t, err)

	entry.Secret.Ciphertext[0] ^= 0x01
	_, err = env.svc.RevealCredential(ctx, entry, aliceMaster)
	assert.ErrorIs(t, err, model.ErrAuthenticationFailed)
}

func TestVaultService_RevealCredential_CancelledContext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, err := env.svc.CreateAccount(ctx, "alice", aliceMaster)
	require.NoError(t, err)
	entry, err := env.svc.AddCredential(ctx, alice.ID, "example.com", "alice", alicePassword, aliceMaster)
	require.NoError(t, err)

	// Occupy both workers so the reveal has to wait.
	release := make(chan struct{})
	var wg sync.WaitGroup
	for range 2 {
		started := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = env.svc.pool.Do(ctx, func() error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = env.svc.RevealCredential(cancelled, entry, aliceMaster)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	wg.Wait()
}

func TestVaultService_GetCredential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, err := env.svc.CreateAccount(ctx, "alice", aliceMaster)
	require.NoError(t, err)
	bob, err := env.svc.CreateAccount(ctx, "bob", "bob master")
	require.NoError(t, err)
	entry, err := env.svc.AddCredential(ctx, alice.ID, "example.com", "alice", alicePassword, aliceMaster)
	require.NoError(t, err)

	got, err := env.svc.GetCredential(ctx, alice.ID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)

	_, err = env.svc.GetCredential(ctx, bob.ID, entry.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestVaultService_UpdateCredential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, err := env.svc.CreateAccount(ctx, "alice", aliceMaster)
	require.NoError(t, err)
	entry, err := env.svc.AddCredential(ctx, alice.ID, "example.com", "alice", alicePassword, aliceMaster)
	require.NoError(t, err)

	t.Run("labels only keep the sealed secret", func(t *testing.T) {
		updated, err := env.svc.UpdateCredential(ctx, alice.ID, entry.ID, CredentialUpdate{Login: strPtr("alice@example.com")}, "")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", updated.Login)
		assert.Equal(t, "example.com", updated.Service)
		assert.Equal(t, entry.Secret, updated.Secret)
		assert.True(t, updated.UpdatedAt.After(entry.UpdatedAt))
	})

	t.Run("new password is resealed", func(t *testing.T) {
		updated, err := env.svc.UpdateCredential(ctx, alice.ID, entry.ID, CredentialUpdate{Password: strPtr("n3w-p4ss")}, aliceMaster)
		require.NoError(t, err)
		assert.NotEqual(t, entry.Secret.Salt, updated.Secret.Salt)
		assert.NotEqual(t, entry.Secret.Nonce, updated.Secret.Nonce)

		revealed, err := env.svc.RevealCredential(ctx, updated, aliceMaster)
		require.NoError(t, err)
		assert.Equal(t, "n3w-p4ss", revealed)
	})

	t.Run("password without master", func(t *testing.T) {
		_, err := env.svc.UpdateCredential(ctx, alice.ID, entry.ID, CredentialUpdate{Password: strPtr("x")}, "")
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("no fields", func(t *testing.T) {
		_, err := env.svc.UpdateCredential(ctx, alice.ID, entry.ID, CredentialUpdate{}, aliceMaster)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("blank service", func(t *testing.T) {
		_, err := env.svc.UpdateCredential(ctx, alice.ID, entry.ID, CredentialUpdate{Service: strPtr(" ")}, "")
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := env.svc.UpdateCredential(ctx, alice.ID, entry.ID+10, CredentialUpdate{Login: strPtr("x")}, "")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
