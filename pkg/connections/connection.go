// Package connections manages the lifecycle of proxied connections to
// targets: session authorization, proxy establishment, and teardown.
package connections

import "time"

// ConnStatus is the lifecycle state of a connection.
type ConnStatus string

const (
	// StatusActive means the local proxy is running.
	StatusActive ConnStatus = "active"
	// StatusTerminated means the proxy has been shut down.
	StatusTerminated ConnStatus = "terminated"
)

// Connection is one established proxy to a target.
type Connection struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"session_id"`
	ServerID     string     `json:"server_id"`
	TargetID     string     `json:"target_id"`
	TargetName   string     `json:"target_name"`
	Type         string     `json:"type"`
	LocalAddress string     `json:"local_address"`
	LocalPort    int        `json:"local_port"`
	Status       ConnStatus `json:"status"`
	PID          int        `json:"pid"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at,omitempty"`
}

// Expired reports whether the underlying session authorization has lapsed.
func (c *Connection) Expired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}
