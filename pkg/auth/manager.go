package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jnury/regis/pkg/boundary"
	regiserr "github.com/jnury/regis/pkg/errors"
	"github.com/jnury/regis/pkg/logger"
	"github.com/jnury/regis/pkg/registry"
	"github.com/jnury/regis/pkg/secrets"
)

const (
	defaultPollInterval = time.Second
	defaultPollAttempts = 30

	// expiryCheckInterval is how often completed sessions are checked for
	// token expiry.
	expiryCheckInterval = 15 * time.Second
)

// ClientFactory builds a boundary client for a server.
type ClientFactory func(server *registry.Server) boundary.Client

// issuerResolver fetches OIDC provider metadata. Replaceable in tests.
type issuerResolver func(ctx context.Context, issuer string) (*IssuerMetadata, error)

// Manager owns one authentication session per server.
type Manager struct {
	factory       ClientFactory
	store         secrets.Store
	pollInterval  time.Duration
	pollAttempts  int
	resolveIssuer issuerResolver
	onLogout      func(serverID string)

	mu       sync.RWMutex
	sessions map[string]*session
}

// Option configures a Manager.
type Option func(*Manager)

// WithPollInterval sets the delay between completion checks.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithPollAttempts sets how many completion checks are made before the
// session times out.
func WithPollAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.pollAttempts = n
		}
	}
}

// WithLogoutHook registers a callback invoked whenever a server's session
// ends, through logout or token expiry.
func WithLogoutHook(hook func(serverID string)) Option {
	return func(m *Manager) { m.onLogout = hook }
}

// withIssuerResolver substitutes OIDC metadata resolution, for tests.
func withIssuerResolver(r issuerResolver) Option {
	return func(m *Manager) { m.resolveIssuer = r }
}

// NewManager creates an authentication manager.
func NewManager(factory ClientFactory, store secrets.Store, opts ...Option) *Manager {
	m := &Manager{
		factory:       factory,
		store:         store,
		pollInterval:  defaultPollInterval,
		pollAttempts:  defaultPollAttempts,
		resolveIssuer: resolveIssuerMetadata,
		sessions:      make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// session tracks one server's authentication lifecycle.
type session struct {
	mu       sync.Mutex
	serverID string
	client   boundary.Client
	status   Status
	method   *boundary.AuthMethod
	issuer   *IssuerMetadata
	scopes   []boundary.Scope
	scope    *boundary.Scope
	result   *boundary.AuthResult
	failure  string
	attempts int
	pending  boundary.PendingAuth
	cancel   context.CancelFunc
}

func (s *session) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *session) fail(msg string) {
	s.mu.Lock()
	s.status = StatusFailed
	s.failure = msg
	s.mu.Unlock()
}

// abort tears down any in-flight work. Used when a session is superseded or
// logged out.
func (s *session) abort() {
	s.mu.Lock()
	pending := s.pending
	cancel := s.cancel
	s.pending = nil
	s.cancel = nil
	if !s.status.Terminal() {
		s.status = StatusIdle
	}
	s.mu.Unlock()

	if pending != nil {
		pending.Cancel()
	}
	if cancel != nil {
		cancel()
	}
}

// Login starts a fresh authentication flow against a server. Any flow
// already in progress for the same server is cancelled first. Login returns
// once the provider flow has been opened; completion is observed through
// Status.
func (m *Manager) Login(ctx context.Context, server *registry.Server) error {
	s := &session{
		serverID: server.ID,
		client:   m.factory(server),
		status:   StatusDiscovering,
	}

	m.mu.Lock()
	previous := m.sessions[server.ID]
	m.sessions[server.ID] = s
	m.mu.Unlock()
	if previous != nil {
		logger.Debugw("superseding existing authentication session", "server", server.ID)
		previous.abort()
	}

	methods, err := s.client.DiscoverAuthMethods(ctx)
	if err != nil {
		s.fail(err.Error())
		return regiserr.NewDiscoveryError("failed to discover auth methods", err).WithServer(server.ID)
	}

	method := chooseMethod(methods, server.OIDCIssuer)
	if method == nil {
		s.fail("no OIDC auth methods available")
		return regiserr.NewDiscoveryError("server has no OIDC auth methods", nil).WithServer(server.ID)
	}
	s.mu.Lock()
	s.method = method
	s.mu.Unlock()

	if method.Issuer != "" {
		// Metadata only enriches what we can display; the CLI still drives
		// the flow if this fails.
		if meta, err := m.resolveIssuer(ctx, method.Issuer); err == nil {
			s.mu.Lock()
			s.issuer = meta
			s.mu.Unlock()
		} else {
			logger.Warnw("failed to resolve issuer metadata", "issuer", method.Issuer, "error", err)
		}
	}

	// The authenticate child and the polling loop must outlive this call.
	pollCtx, cancel := context.WithCancel(context.Background())
	pending, err := s.client.StartAuthentication(pollCtx, method.ID)
	if err != nil {
		cancel()
		s.fail(err.Error())
		return regiserr.NewAuthError("failed to initiate authentication", err).WithServer(server.ID)
	}

	s.mu.Lock()
	s.pending = pending
	s.cancel = cancel
	s.status = StatusInitiated
	s.mu.Unlock()

	go m.poll(pollCtx, s)
	return nil
}

// chooseMethod picks the OIDC auth method to use: the one matching the
// configured issuer when set, otherwise the first one discovered.
func chooseMethod(methods []boundary.AuthMethod, preferredIssuer string) *boundary.AuthMethod {
	var first *boundary.AuthMethod
	for i := range methods {
		if methods[i].Type != "oidc" {
			continue
		}
		if first == nil {
			first = &methods[i]
		}
		if preferredIssuer != "" && methods[i].Issuer == preferredIssuer {
			return &methods[i]
		}
	}
	return first
}

// poll drives an initiated session to a terminal state, checking for
// completion once per interval until the attempt budget runs out.
func (m *Manager) poll(ctx context.Context, s *session) {
	// Every exit releases the poll context. abort may have taken the cancel
	// func already, in which case there is nothing left to release.
	defer func() {
		s.mu.Lock()
		cancel := s.cancel
		s.cancel = nil
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	}()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= m.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		s.status = StatusPolling
		s.attempts = attempt
		pending := s.pending
		s.mu.Unlock()
		if pending == nil {
			return
		}

		result, done, err := pending.Check(ctx)
		if !done {
			if err != nil {
				// Transient; the attempt still counts against the budget.
				logger.Debugw("authentication check failed, will retry",
					"server", s.serverID, "attempt", attempt, "error", err)
			}
			continue
		}
		if err != nil {
			logger.Warnw("authentication failed", "server", s.serverID, "error", err)
			s.fail(err.Error())
			return
		}

		m.complete(ctx, s, result)
		return
	}

	logger.Warnw("authentication timed out", "server", s.serverID, "attempts", m.pollAttempts)
	s.mu.Lock()
	s.status = StatusTimedOut
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	if pending != nil {
		pending.Cancel()
	}
}

// complete records a successful authentication and resolves the session
// scope from what the new token can see.
func (m *Manager) complete(ctx context.Context, s *session, result *boundary.AuthResult) {
	scopes, err := s.client.DiscoverScopes(ctx, result.Token)
	if err != nil {
		logger.Warnw("scope discovery failed after authentication", "server", s.serverID, "error", err)
		s.fail(fmt.Sprintf("failed to discover scopes: %v", err))
		return
	}

	selected, needsSelection := resolveScopes(scopes)

	s.mu.Lock()
	s.result = result
	s.scopes = scopes
	if needsSelection {
		s.status = StatusScopeSelection
		s.mu.Unlock()
		logger.Infow("authentication succeeded, scope selection required",
			"server", s.serverID, "scopes", len(scopes))
		return
	}
	s.scope = selected
	s.status = StatusCompleted
	s.mu.Unlock()

	m.persistToken(s, result, selected)
	logger.Infow("authentication completed", "server", s.serverID, "user", result.UserID)
}

// persistToken stores the session token. Storage failure does not fail the
// session; the token still works for this process.
func (m *Manager) persistToken(s *session, result *boundary.AuthResult, scope *boundary.Scope) {
	token := &secrets.Token{
		AccessToken: result.Token,
		ServerID:    s.serverID,
		UserID:      result.UserID,
		ExpiresAt:   result.ExpiresAt,
		CreatedAt:   time.Now(),
	}
	if scope != nil {
		token.ScopeID = scope.ID
	}
	if err := m.store.Save(token); err != nil {
		logger.Warnw("failed to persist session token", "server", s.serverID, "error", err)
	}
}

// SelectScope resolves a pending scope selection. Selecting the scope a
// completed session already has is a no-op; anything else after completion
// is an error.
func (m *Manager) SelectScope(serverID, scopeID string) error {
	m.mu.RLock()
	s := m.sessions[serverID]
	m.mu.RUnlock()
	if s == nil {
		return regiserr.NewAuthError("no authentication session for server", nil).WithServer(serverID)
	}

	s.mu.Lock()
	switch s.status {
	case StatusCompleted:
		defer s.mu.Unlock()
		if s.scope != nil && s.scope.ID == scopeID {
			return nil
		}
		return regiserr.NewAuthError("session scope is already resolved", nil).WithServer(serverID)
	case StatusScopeSelection:
	default:
		s.mu.Unlock()
		return regiserr.NewAuthError(
			fmt.Sprintf("no scope selection pending (session is %s)", s.status), nil).WithServer(serverID)
	}

	var selected *boundary.Scope
	for i := range s.scopes {
		if s.scopes[i].ID == scopeID {
			selected = &s.scopes[i]
			break
		}
	}
	if selected == nil {
		s.mu.Unlock()
		return regiserr.NewAuthError(fmt.Sprintf("scope %s is not available to this session", scopeID), nil).
			WithServer(serverID)
	}

	s.scope = selected
	s.status = StatusCompleted
	result := s.result
	s.mu.Unlock()

	m.persistToken(s, result, selected)
	logger.Infow("scope selected", "server", serverID, "scope", scopeID)
	return nil
}

// Status returns a snapshot of the server's session. When no in-memory
// session exists, a stored unexpired token still counts as a completed
// session.
func (m *Manager) Status(serverID string) Snapshot {
	m.mu.RLock()
	s := m.sessions[serverID]
	m.mu.RUnlock()

	if s == nil {
		return m.storedSnapshot(serverID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ServerID:      serverID,
		Status:        s.status,
		Method:        s.method,
		Issuer:        s.issuer,
		Scopes:        append([]boundary.Scope(nil), s.scopes...),
		SelectedScope: s.scope,
		Attempts:      s.attempts,
		Error:         s.failure,
	}
	if s.result != nil {
		snap.UserID = s.result.UserID
		snap.ExpiresAt = s.result.ExpiresAt
	}
	return snap
}

func (m *Manager) storedSnapshot(serverID string) Snapshot {
	snap := Snapshot{ServerID: serverID, Status: StatusIdle}
	token, err := m.store.Load(serverID)
	if err != nil {
		return snap
	}
	if token.Expired() {
		return snap
	}
	snap.Status = StatusCompleted
	snap.UserID = token.UserID
	snap.ExpiresAt = token.ExpiresAt
	if token.ScopeID != "" {
		snap.SelectedScope = &boundary.Scope{ID: token.ScopeID}
	}
	return snap
}

// Token returns a usable session token for a server, from the live session
// or from storage. Expired stored tokens are deleted.
func (m *Manager) Token(serverID string) (*secrets.Token, error) {
	m.mu.RLock()
	s := m.sessions[serverID]
	m.mu.RUnlock()

	if s != nil {
		s.mu.Lock()
		if s.status == StatusCompleted && s.result != nil {
			token := &secrets.Token{
				AccessToken: s.result.Token,
				ServerID:    serverID,
				UserID:      s.result.UserID,
				ExpiresAt:   s.result.ExpiresAt,
			}
			if s.scope != nil {
				token.ScopeID = s.scope.ID
			}
			s.mu.Unlock()
			return token, nil
		}
		s.mu.Unlock()
	}

	token, err := m.store.Load(serverID)
	if err != nil {
		if errors.Is(err, secrets.ErrTokenNotFound) {
			return nil, regiserr.NewAuthError("not authenticated", err).WithServer(serverID)
		}
		return nil, err
	}
	if token.Expired() {
		m.expire(serverID)
		return nil, regiserr.NewAuthError("session token has expired", nil).WithServer(serverID)
	}
	return token, nil
}

// Logout ends the server's session: any in-flight flow is cancelled, the
// stored token is deleted, and the logout hook runs. Logging out a server
// with no session is not an error.
func (m *Manager) Logout(serverID string) error {
	m.mu.Lock()
	s := m.sessions[serverID]
	delete(m.sessions, serverID)
	m.mu.Unlock()

	if s != nil {
		s.abort()
	}
	if err := m.store.Delete(serverID); err != nil {
		return fmt.Errorf("failed to delete stored token: %w", err)
	}
	if m.onLogout != nil {
		m.onLogout(serverID)
	}
	logger.Infow("logged out", "server", serverID)
	return nil
}

// expire tears down an expired session the same way a logout does.
func (m *Manager) expire(serverID string) {
	logger.Warnw("session token expired", "server", serverID)
	if err := m.Logout(serverID); err != nil {
		logger.Warnw("failed to clean up expired session", "server", serverID, "error", err)
	}
}

// WatchExpiry periodically checks completed sessions for token expiry and
// logs out any that have lapsed. It blocks until the context is cancelled.
func (m *Manager) WatchExpiry(ctx context.Context) {
	ticker := time.NewTicker(expiryCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.expireLapsedSessions()
		}
	}
}

func (m *Manager) expireLapsedSessions() {
	m.mu.RLock()
	serverIDs := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		serverIDs = append(serverIDs, id)
	}
	m.mu.RUnlock()

	for _, id := range serverIDs {
		m.mu.RLock()
		s := m.sessions[id]
		m.mu.RUnlock()
		if s == nil {
			continue
		}
		s.mu.Lock()
		expired := s.status == StatusCompleted && s.result != nil &&
			!s.result.ExpiresAt.IsZero() && time.Now().After(s.result.ExpiresAt)
		s.mu.Unlock()
		if expired {
			m.expire(id)
		}
	}
}
