package boundary

import (
	"context"
)

// Client is the capability interface the engine uses to talk to one
// controller. Implementations must be safe for concurrent use.
type Client interface {
	// Verify checks that the wrapped CLI is present and runnable.
	Verify(ctx context.Context) error

	// DiscoverAuthMethods lists the authentication methods the controller
	// advertises, in discovery order.
	DiscoverAuthMethods(ctx context.Context) ([]AuthMethod, error)

	// DiscoverScopes lists the scopes visible to the given token.
	DiscoverScopes(ctx context.Context, token string) ([]Scope, error)

	// ListTargets lists the targets visible to the token, optionally limited
	// to one scope.
	ListTargets(ctx context.Context, token, scopeID string) ([]Target, error)

	// StartAuthentication submits an authentication request for the given
	// method and returns a handle for checking its progress. The request
	// runs until it completes, fails, or the handle is cancelled.
	StartAuthentication(ctx context.Context, authMethodID string) (PendingAuth, error)

	// AuthorizeSession asks the controller to authorize a session against a
	// target.
	AuthorizeSession(ctx context.Context, token, targetID, hostID string) (*SessionAuthorization, error)

	// Connect establishes the local proxy endpoint for an authorized
	// session. connType is the target's protocol tag.
	Connect(ctx context.Context, authorizationToken, connType string) (*Endpoint, error)
}

// PendingAuth is a handle to an in-flight authentication request.
type PendingAuth interface {
	// Check reports the current state of the request without blocking on
	// its completion. It returns (nil, false, nil) while the request is
	// still pending, (result, true, nil) on success, and (nil, true, err)
	// on terminal failure. A non-nil error with done=false is transient
	// and may be retried.
	Check(ctx context.Context) (result *AuthResult, done bool, err error)

	// Cancel abandons the request and releases its resources. Safe to call
	// more than once.
	Cancel()
}
