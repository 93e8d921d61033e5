package secrets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTempTokenFile(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	original := tokenFilePath
	tokenFilePath = func() (string, error) {
		return filepath.Join(dir, "tokens.enc"), nil
	}
	t.Cleanup(func() { tokenFilePath = original })
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	withTempTokenFile(t)

	store, err := NewEncryptedStore("correct horse battery staple")
	require.NoError(t, err)

	token := &Token{
		AccessToken: "tok_secret",
		ServerID:    "prod",
		UserID:      "u_alice",
		ExpiresAt:   time.Now().Add(time.Hour).Truncate(time.Second),
		CreatedAt:   time.Now().Truncate(time.Second),
	}
	require.NoError(t, store.Save(token))

	loaded, err := store.Load("prod")
	require.NoError(t, err)
	assert.Equal(t, "tok_secret", loaded.AccessToken)
	assert.Equal(t, "u_alice", loaded.UserID)
}

func TestEncryptedStorePersistsAcrossReopen(t *testing.T) {
	withTempTokenFile(t)

	store, err := NewEncryptedStore("pw")
	require.NoError(t, err)
	require.NoError(t, store.Save(&Token{AccessToken: "tok", ServerID: "prod", UserID: "u"}))

	reopened, err := NewEncryptedStore("pw")
	require.NoError(t, err)
	loaded, err := reopened.Load("prod")
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.AccessToken)
}

func TestEncryptedStoreWrongPassword(t *testing.T) {
	withTempTokenFile(t)

	store, err := NewEncryptedStore("right")
	require.NoError(t, err)
	require.NoError(t, store.Save(&Token{AccessToken: "tok", ServerID: "prod"}))

	_, err = NewEncryptedStore("wrong")
	assert.Error(t, err)
}

func TestEncryptedStoreFileIsNotPlaintext(t *testing.T) {
	withTempTokenFile(t)

	store, err := NewEncryptedStore("pw")
	require.NoError(t, err)
	require.NoError(t, store.Save(&Token{AccessToken: "tok_secret", ServerID: "prod"}))

	path, err := tokenFilePath()
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tok_secret")
}

func TestEncryptedStoreDeleteIdempotent(t *testing.T) {
	withTempTokenFile(t)

	store, err := NewEncryptedStore("pw")
	require.NoError(t, err)
	require.NoError(t, store.Save(&Token{AccessToken: "tok", ServerID: "prod"}))

	require.NoError(t, store.Delete("prod"))
	require.NoError(t, store.Delete("prod"))

	_, err = store.Load("prod")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestEncryptedStoreRequiresPassword(t *testing.T) {
	withTempTokenFile(t)

	_, err := NewEncryptedStore("")
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	t.Parallel()

	assert.False(t, (&Token{}).Expired())
	assert.False(t, (&Token{ExpiresAt: time.Now().Add(time.Minute)}).Expired())
	assert.True(t, (&Token{ExpiresAt: time.Now().Add(-time.Minute)}).Expired())
}
