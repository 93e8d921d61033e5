package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jnury/regis/pkg/auth"
	"github.com/jnury/regis/pkg/secrets"
)

// emptyTokenStore is a token store with nothing in it.
type emptyTokenStore struct{}

func (emptyTokenStore) Save(*secrets.Token) error { return nil }

func (emptyTokenStore) Load(string) (*secrets.Token, error) {
	return nil, secrets.ErrTokenNotFound
}

func (emptyTokenStore) Delete(string) error { return nil }

func TestWaitForOutcomeReturnsOnIdleSession(t *testing.T) {
	t.Parallel()

	// No session exists for the server, so its status is idle, as it would
	// be after a concurrent logout aborted the flow mid-wait.
	authMgr := auth.NewManager(nil, emptyTokenStore{})

	done := make(chan auth.Snapshot, 1)
	go func() { done <- waitForOutcome(authMgr, "prod", time.Millisecond) }()

	select {
	case snap := <-done:
		assert.Equal(t, auth.StatusIdle, snap.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("waitForOutcome never returned for an idle session")
	}
}
