// Package auth drives browser-based OIDC authentication against a boundary
// controller and tracks the session state per server.
package auth

import (
	"time"

	"github.com/jnury/regis/pkg/boundary"
)

// Status is the lifecycle state of an authentication session.
type Status string

const (
	// StatusIdle means no authentication has been started or the session
	// was logged out.
	StatusIdle Status = "idle"
	// StatusDiscovering means auth methods are being discovered.
	StatusDiscovering Status = "discovering"
	// StatusInitiated means the provider flow has been opened but polling
	// has not observed a result yet.
	StatusInitiated Status = "initiated"
	// StatusPolling means completion is being polled for.
	StatusPolling Status = "polling"
	// StatusScopeSelection means authentication succeeded and the user must
	// choose between multiple scopes.
	StatusScopeSelection Status = "scope_selection"
	// StatusCompleted means the session is authenticated and scoped.
	StatusCompleted Status = "completed"
	// StatusFailed means authentication failed terminally.
	StatusFailed Status = "failed"
	// StatusTimedOut means the polling budget was exhausted without a
	// result.
	StatusTimedOut Status = "timed_out"
)

// Terminal reports whether the status can no longer change without a new
// login.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

// Snapshot is a point-in-time view of a session's state.
type Snapshot struct {
	ServerID      string
	Status        Status
	Method        *boundary.AuthMethod
	Issuer        *IssuerMetadata
	Scopes        []boundary.Scope
	SelectedScope *boundary.Scope
	UserID        string
	ExpiresAt     time.Time
	Attempts      int
	Error         string
}
