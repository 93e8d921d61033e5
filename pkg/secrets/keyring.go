package secrets

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore persists tokens in the operating system keyring, one entry
// per server under the regis service.
type KeyringStore struct{}

// NewKeyringStore returns a keyring-backed store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// Available probes whether the OS keyring is usable by writing and removing
// a throwaway entry.
func (*KeyringStore) Available() bool {
	probeKey := "availability-probe"
	if err := keyring.Set(serviceName, probeKey, "probe"); err != nil {
		return false
	}
	_ = keyring.Delete(serviceName, probeKey)
	return true
}

// Save stores the token under the server ID.
func (*KeyringStore) Save(token *Token) error {
	if token.ServerID == "" {
		return errors.New("token is missing a server ID")
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to serialize token: %w", err)
	}
	if err := keyring.Set(serviceName, token.ServerID, string(data)); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// Load retrieves the token stored for a server.
func (*KeyringStore) Load(serverID string) (*Token, error) {
	data, err := keyring.Get(serviceName, serverID)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read token from keyring: %w", err)
	}
	var token Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("failed to deserialize stored token: %w", err)
	}
	return &token, nil
}

// Delete removes the token stored for a server.
func (*KeyringStore) Delete(serverID string) error {
	if err := keyring.Delete(serviceName, serverID); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}
