// Package boundary defines the typed capability surface over the wrapped
// boundary CLI: the domain types returned by the controller and the Client
// interface the engine consumes. The CLI-backed implementation lives in
// cli.go; tests substitute fakes.
package boundary

import (
	"time"
)

// AuthMethod is an authentication method discovered on a controller. It is
// discovered, not persisted across runs.
type AuthMethod struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`

	// Issuer is the OIDC issuer URL reported by the controller for OIDC
	// methods, empty for other method types.
	Issuer string `json:"issuer,omitempty"`
}

// Scope is an authorization boundary under which targets are listed.
type Scope struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Target is a remote resource reachable through the controller once
// authorized. Type is an open set of protocol tags (tcp/ssh/rdp/http/...).
// Address may be empty when the controller assigns it dynamically.
type Target struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"`
	DefaultPort int    `json:"default_port,omitempty"`
}

// AuthResult is the outcome of a completed authentication request.
type AuthResult struct {
	// Token is the opaque credential returned by the controller. It must
	// never be logged or included in error messages.
	Token     string
	UserID    string
	ExpiresAt time.Time // zero when the controller reported no expiry
}

// SessionAuthorization is the result of authorizing a session against a
// target, consumed by the establish phase.
type SessionAuthorization struct {
	AuthorizationToken string `json:"authorization_token"`
	SessionID          string `json:"session_id"`
	TargetID           string `json:"target_id"`
	UserID             string `json:"user_id"`
	HostID             string `json:"host_id,omitempty"`
	ScopeID            string `json:"scope_id"`
	CreatedTime        string `json:"created_time,omitempty"`
	ExpirationTime     string `json:"expiration_time,omitempty"`
	ConnectionLimit    int    `json:"connection_limit"`
}

// Endpoint is the local proxy endpoint produced by the connect phase. PID is
// the id of the CLI child process driving the proxy; zero when the proxy is
// not process-backed (test doubles).
type Endpoint struct {
	Address string
	Port    int
	PID     int
}
