package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

// PasswordEnvVar supplies the password protecting the encrypted fallback
// file when no OS keyring is available.
const PasswordEnvVar = "REGIS_SECRETS_PASSWORD"

// EncryptedStore persists tokens in a single AES-256-GCM encrypted file.
// It is used on hosts without a usable keyring.
type EncryptedStore struct {
	filePath string
	key      []byte

	mu     sync.Mutex
	tokens map[string]*Token
}

// fileStructure is the decrypted layout of the secrets file.
type fileStructure struct {
	Tokens map[string]*Token `json:"tokens"`
}

// tokenFilePath resolves the encrypted token file location. Replaceable in
// tests.
var tokenFilePath = func() (string, error) {
	return xdg.DataFile(filepath.Join("regis", "tokens.enc"))
}

// NewEncryptedStore opens (or creates) the encrypted token file, deriving
// the encryption key from the password.
func NewEncryptedStore(password string) (*EncryptedStore, error) {
	if password == "" {
		return nil, fmt.Errorf("no keyring available and %s is not set", PasswordEnvVar)
	}
	filePath, err := tokenFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token file path: %w", err)
	}

	key := sha256.Sum256([]byte(password))
	store := &EncryptedStore{
		filePath: filePath,
		key:      key[:],
		tokens:   make(map[string]*Token),
	}

	data, err := os.ReadFile(filePath) //nolint:gosec // path is fixed under the XDG data dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	if len(data) == 0 {
		return store, nil
	}

	plaintext, err := decrypt(data, store.key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token file (wrong password?): %w", err)
	}
	var contents fileStructure
	if err := json.Unmarshal(plaintext, &contents); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if contents.Tokens != nil {
		store.tokens = contents.Tokens
	}
	return store, nil
}

// Save stores the token, replacing any existing token for the server.
func (s *EncryptedStore) Save(token *Token) error {
	if token.ServerID == "" {
		return errors.New("token is missing a server ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.ServerID] = token
	return s.writeFile()
}

// Load returns the stored token for a server.
func (s *EncryptedStore) Load(serverID string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[serverID]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return token, nil
}

// Delete removes the stored token for a server.
func (s *EncryptedStore) Delete(serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[serverID]; !ok {
		return nil
	}
	delete(s.tokens, serverID)
	return s.writeFile()
}

func (s *EncryptedStore) writeFile() error {
	plaintext, err := json.Marshal(fileStructure{Tokens: s.tokens})
	if err != nil {
		return fmt.Errorf("failed to serialize tokens: %w", err)
	}
	ciphertext, err := encrypt(plaintext, s.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt tokens: %w", err)
	}
	if err := os.WriteFile(s.filePath, ciphertext, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// encrypt seals plaintext with AES-256-GCM, prepending the nonce.
func encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(data, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, errors.New("ciphertext is shorter than the nonce")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
