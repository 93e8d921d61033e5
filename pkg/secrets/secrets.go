// Package secrets stores session tokens in the operating system keyring,
// falling back to an encrypted file when no keyring is available.
package secrets

import (
	"errors"
	"time"
)

// serviceName is the keyring service entries are filed under.
const serviceName = "regis"

// ErrTokenNotFound is returned when no token is stored for a server.
var ErrTokenNotFound = errors.New("no stored token for server")

// Token is a session token together with the identity it belongs to.
type Token struct {
	AccessToken string    `json:"access_token"`
	ServerID    string    `json:"server_id"`
	UserID      string    `json:"user_id"`
	ScopeID     string    `json:"scope_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Expired reports whether the token's expiration time has passed. Tokens
// without an expiration time never expire locally.
func (t *Token) Expired() bool {
	return !t.ExpiresAt.IsZero() && time.Now().After(t.ExpiresAt)
}

// Store persists one token per server.
type Store interface {
	// Save stores the token, replacing any existing token for the server.
	Save(token *Token) error
	// Load returns the stored token for a server, or ErrTokenNotFound.
	Load(serverID string) (*Token, error)
	// Delete removes the stored token for a server. Deleting a token that
	// does not exist is not an error.
	Delete(serverID string) error
}
