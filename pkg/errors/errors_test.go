package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := NewDiscoveryError("failed to list auth methods", cause).WithServer("srv-1")

	assert.Contains(t, err.Error(), "discovery")
	assert.Contains(t, err.Error(), "failed to list auth methods")
	assert.Contains(t, err.Error(), "srv-1")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := NewConnectionError("establish failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_TargetContext(t *testing.T) {
	t.Parallel()

	err := NewAuthorizationError("access denied", nil).WithServer("srv-1").WithTarget("ttcp_123")
	assert.Contains(t, err.Error(), "ttcp_123")
	assert.Nil(t, errors.Unwrap(err))
}

func TestPredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{"config", NewConfigError("bad server entry", nil), IsConfig},
		{"discovery", NewDiscoveryError("dns failure", nil), IsDiscovery},
		{"auth", NewAuthError("rejected", nil), IsAuth},
		{"timeout", NewTimeoutError("budget exhausted", nil), IsTimeout},
		{"target_discovery", NewTargetDiscoveryError("listing failed", nil), IsTargetDiscovery},
		{"authorization", NewAuthorizationError("denied", nil), IsAuthorization},
		{"connection", NewConnectionError("establish failed", nil), IsConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tt.predicate(tt.err))
			assert.False(t, tt.predicate(errors.New("plain")))
		})
	}

	// Predicates distinguish between types.
	assert.False(t, IsAuth(NewTimeoutError("budget exhausted", nil)))
	assert.False(t, IsConnection(NewAuthorizationError("denied", nil)))
}

func TestPredicates_WrappedError(t *testing.T) {
	t.Parallel()

	inner := NewTimeoutError("budget exhausted", nil)
	wrapped := fmt.Errorf("authentication failed: %w", inner)

	require.True(t, IsTimeout(wrapped))
	assert.False(t, IsAuth(wrapped))
}
