package connections

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/jnury/regis/pkg/boundary"
	regiserr "github.com/jnury/regis/pkg/errors"
	"github.com/jnury/regis/pkg/logger"
	"github.com/jnury/regis/pkg/process"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 2 * time.Second

	// expiryCheckInterval is how often active connections are checked
	// against their session expiry.
	expiryCheckInterval = 15 * time.Second
)

// Process control hooks, replaceable in tests.
var (
	killProcess   = process.KillProcess
	findProcess   = process.FindProcess
	writePIDFile  = process.WritePIDFile
	removePIDFile = process.RemovePIDFile
)

// Manager tracks active connections and persists them across invocations.
type Manager struct {
	retryAttempts int
	retryDelay    time.Duration

	mu          sync.Mutex
	connections map[string]*Connection
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRetryAttempts sets how many times establishment is attempted.
func WithRetryAttempts(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.retryAttempts = n
		}
	}
}

// WithRetryDelay sets the delay between establishment attempts.
func WithRetryDelay(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.retryDelay = d
		}
	}
}

// NewManager creates a connection manager, restoring any connections
// persisted by earlier invocations. Restored connections whose proxy
// process is gone are marked terminated.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	connections, err := loadState()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
		connections:   connections,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.reconcile()
	m.terminateExpired()
	return m, nil
}

// reconcile marks restored connections whose proxy died as terminated.
func (m *Manager) reconcile() {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for _, conn := range m.connections {
		if conn.Status != StatusActive {
			continue
		}
		alive, err := findProcess(conn.PID)
		if err == nil && !alive {
			logger.Debugw("proxy process gone, marking connection terminated",
				"connection", conn.ID, "pid", conn.PID)
			conn.Status = StatusTerminated
			changed = true
		}
	}
	if changed {
		if err := saveState(m.connections); err != nil {
			logger.Warnw("failed to persist reconciled connection state", "error", err)
		}
	}
}

// Authorize requests a session authorization for a target. This is the
// first phase of connecting; no local resources exist until Establish.
func (m *Manager) Authorize(
	ctx context.Context,
	client boundary.Client,
	serverID, token string,
	target *boundary.Target,
) (*boundary.SessionAuthorization, error) {
	authz, err := client.AuthorizeSession(ctx, token, target.ID, "")
	if err != nil {
		return nil, regiserr.NewAuthorizationError("failed to authorize session", err).
			WithServer(serverID).WithTarget(target.ID)
	}
	logger.Infow("session authorized", "server", serverID, "target", target.ID, "session", authz.SessionID)
	return authz, nil
}

// Establish starts the local proxy for an authorized session, retrying on
// transient failures. The returned connection is active and persisted.
func (m *Manager) Establish(
	ctx context.Context,
	client boundary.Client,
	serverID string,
	target *boundary.Target,
	authz *boundary.SessionAuthorization,
	connType string,
) (*Connection, error) {
	b := backoff.NewConstantBackOff(m.retryDelay)

	endpoint, err := backoff.Retry(ctx, func() (*boundary.Endpoint, error) {
		return client.Connect(ctx, authz.AuthorizationToken, connType)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(m.retryAttempts)), // #nosec G115 -- bounded by config validation
		backoff.WithNotify(func(err error, delay time.Duration) {
			logger.Warnw("proxy establishment failed, retrying",
				"target", target.ID, "delay", delay, "error", err)
		}),
	)
	if err != nil {
		return nil, regiserr.NewConnectionError("failed to establish proxy", err).
			WithServer(serverID).WithTarget(target.ID)
	}

	conn := &Connection{
		ID:           uuid.New().String(),
		SessionID:    authz.SessionID,
		ServerID:     serverID,
		TargetID:     target.ID,
		TargetName:   target.Name,
		Type:         connType,
		LocalAddress: endpoint.Address,
		LocalPort:    endpoint.Port,
		Status:       StatusActive,
		PID:          endpoint.PID,
		CreatedAt:    time.Now(),
	}
	if authz.ExpirationTime != "" {
		if expiry, parseErr := time.Parse(time.RFC3339, authz.ExpirationTime); parseErr == nil {
			conn.ExpiresAt = expiry
		}
	}

	if conn.PID != 0 {
		if err := writePIDFile(conn.ID, conn.PID); err != nil {
			logger.Warnw("failed to write PID file", "connection", conn.ID, "error", err)
		}
	}

	m.mu.Lock()
	m.connections[conn.ID] = conn
	saveErr := saveState(m.connections)
	m.mu.Unlock()
	if saveErr != nil {
		logger.Warnw("failed to persist connection state", "error", saveErr)
	}

	logger.Infow("connection established",
		"connection", conn.ID, "target", target.ID,
		"address", conn.LocalAddress, "port", conn.LocalPort)
	return conn, nil
}

// Connect authorizes and establishes in one step.
func (m *Manager) Connect(
	ctx context.Context,
	client boundary.Client,
	serverID, token string,
	target *boundary.Target,
	connType string,
) (*Connection, error) {
	authz, err := m.Authorize(ctx, client, serverID, token, target)
	if err != nil {
		return nil, err
	}
	return m.Establish(ctx, client, serverID, target, authz, connType)
}

// Get returns a connection by ID.
func (m *Manager) Get(connectionID string) (*Connection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.connections[connectionID]
	if !ok {
		return nil, false
	}
	copied := *conn
	return &copied, true
}

// List returns all known connections, newest first.
func (m *Manager) List() []*Connection {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		copied := *conn
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// Terminate shuts down a connection's proxy. Terminating a connection that
// is already terminated is a no-op; terminating an unknown connection is an
// error.
func (m *Manager) Terminate(connectionID string) error {
	m.mu.Lock()
	conn, ok := m.connections[connectionID]
	if !ok {
		m.mu.Unlock()
		return regiserr.NewConnectionError(fmt.Sprintf("unknown connection %s", connectionID), nil)
	}
	if conn.Status == StatusTerminated {
		m.mu.Unlock()
		logger.Debugw("connection already terminated", "connection", connectionID)
		return nil
	}
	conn.Status = StatusTerminated
	pid := conn.PID
	saveErr := saveState(m.connections)
	m.mu.Unlock()
	if saveErr != nil {
		logger.Warnw("failed to persist connection state", "error", saveErr)
	}

	if pid != 0 {
		if err := killProcess(pid); err != nil {
			logger.Warnw("failed to kill proxy process", "connection", connectionID, "pid", pid, "error", err)
		}
		if err := removePIDFile(connectionID); err != nil {
			logger.Warnw("failed to remove PID file", "connection", connectionID, "error", err)
		}
	}

	logger.Infow("connection terminated", "connection", connectionID)
	return nil
}

// TerminateAllForServer terminates every active connection to a server.
// Used on logout and session expiry.
func (m *Manager) TerminateAllForServer(serverID string) {
	m.mu.Lock()
	ids := make([]string, 0)
	for id, conn := range m.connections {
		if conn.ServerID == serverID && conn.Status == StatusActive {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Terminate(id); err != nil {
			logger.Warnw("failed to terminate connection", "connection", id, "error", err)
		}
	}
	if len(ids) > 0 {
		logger.Infow("terminated server connections", "server", serverID, "count", len(ids))
	}
}

// WatchExpiry periodically terminates connections whose session
// authorization has lapsed. It blocks until the context is cancelled.
func (m *Manager) WatchExpiry(ctx context.Context) {
	ticker := time.NewTicker(expiryCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.terminateExpired()
		}
	}
}

func (m *Manager) terminateExpired() {
	m.mu.Lock()
	ids := make([]string, 0)
	for id, conn := range m.connections {
		if conn.Status == StatusActive && conn.Expired() {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	for _, id := range ids {
		logger.Warnw("connection expired", "connection", id)
		if err := m.Terminate(id); err != nil {
			logger.Warnw("failed to terminate expired connection", "connection", id, "error", err)
		}
	}
}
