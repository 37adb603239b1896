package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/passworder/internal/domain/model"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via cache=shared.
// A unique name derived from t.Name() ensures isolation between parallel tests.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name so it's a safe SQLite URI filename component
	// and cannot be misinterpreted as query parameters in the "file:%s?..." DSN.
	safeName := url.PathEscape(t.Name())
	// WAL mode is not applicable to in-memory databases; omit journal_mode pragma.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)",
		safeName,
	)

	db, err := open(context.Background(), dsn, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// fixedClock returns a clock that starts at start and advances by step on every call.
func fixedClock(start time.Time, step time.Duration) func() time.Time {
	current := start.Add(-step)
	return func() time.Time {
		current = current.Add(step)
		return current
	}
}

func mustCreateAccount(t *testing.T, db *DB, username string) model.Account {
	t.Helper()
	account, err := NewAccountRepo(db).Create(context.Background(), username, []byte("verifier-"+username))
	require.NoError(t, err)
	return account
}

func makeSecret(seed byte) model.SealedSecret {
	salt := make([]byte, 16)
	nonce := make([]byte, 12)
	ciphertext := make([]byte, 27)
	for i := range salt {
		salt[i] = seed
	}
	for i := range nonce {
		nonce[i] = seed + 1
	}
	for i := range ciphertext {
		ciphertext[i] = seed + 2
	}
	return model.SealedSecret{Salt: salt, Nonce: nonce, Ciphertext: ciphertext}
}

