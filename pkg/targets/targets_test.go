package targets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnury/regis/pkg/boundary"
	regiserr "github.com/jnury/regis/pkg/errors"
)

// listClient stubs the only client method discovery uses.
type listClient struct {
	targets []boundary.Target
	err     error
	calls   int
}

func (c *listClient) Verify(context.Context) error { return nil }
func (c *listClient) DiscoverAuthMethods(context.Context) ([]boundary.AuthMethod, error) {
	return nil, nil
}
func (c *listClient) DiscoverScopes(context.Context, string) ([]boundary.Scope, error) {
	return nil, nil
}
func (c *listClient) StartAuthentication(context.Context, string) (boundary.PendingAuth, error) {
	return nil, errors.New("not implemented")
}
func (c *listClient) AuthorizeSession(context.Context, string, string, string) (*boundary.SessionAuthorization, error) {
	return nil, errors.New("not implemented")
}
func (c *listClient) Connect(context.Context, string, string) (*boundary.Endpoint, error) {
	return nil, errors.New("not implemented")
}

func (c *listClient) ListTargets(context.Context, string, string) ([]boundary.Target, error) {
	c.calls++
	return c.targets, c.err
}

func sampleTargets() []boundary.Target {
	return []boundary.Target{
		{ID: "ttcp_web", Name: "web-frontend", Description: "nginx fleet", Address: "10.0.1.10"},
		{ID: "ttcp_db", Name: "db-primary", Description: "postgres", Address: "10.0.2.20"},
		{ID: "ttcp_win", Name: "win-jumpbox", Description: "RDP jump host", Address: "10.0.3.30"},
	}
}

func TestDiscoverSortsByName(t *testing.T) {
	t.Parallel()

	client := &listClient{targets: sampleTargets()}
	svc := NewService()

	targets, err := svc.Discover(context.Background(), client, "prod", "tok", "")
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, "db-primary", targets[0].Name)
	assert.Equal(t, "web-frontend", targets[1].Name)
	assert.Equal(t, "win-jumpbox", targets[2].Name)
}

func TestDiscoverEmptyIsNotError(t *testing.T) {
	t.Parallel()

	client := &listClient{}
	svc := NewService()

	targets, err := svc.Discover(context.Background(), client, "prod", "tok", "")
	require.NoError(t, err)
	assert.NotNil(t, targets)
	assert.Empty(t, targets)
}

func TestDiscoverError(t *testing.T) {
	t.Parallel()

	client := &listClient{err: errors.New("permission denied")}
	svc := NewService()

	_, err := svc.Discover(context.Background(), client, "prod", "tok", "")
	require.Error(t, err)
	assert.True(t, regiserr.IsTargetDiscovery(err))
}

func TestFilterUsesCacheOnly(t *testing.T) {
	t.Parallel()

	client := &listClient{targets: sampleTargets()}
	svc := NewService()

	_, err := svc.Discover(context.Background(), client, "prod", "tok", "")
	require.NoError(t, err)

	matched := svc.Filter("prod", "rdp")
	require.Len(t, matched, 1)
	assert.Equal(t, "win-jumpbox", matched[0].Name)
	assert.Equal(t, 1, client.calls, "filtering must not re-query the controller")
}

func TestFilterFields(t *testing.T) {
	t.Parallel()

	svc := NewService()
	client := &listClient{targets: sampleTargets()}
	_, err := svc.Discover(context.Background(), client, "prod", "tok", "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "by name", query: "db-primary", want: 1},
		{name: "by description", query: "postgres", want: 1},
		{name: "by id", query: "ttcp_web", want: 1},
		{name: "by address", query: "10.0.3", want: 1},
		{name: "case insensitive", query: "WEB", want: 1},
		{name: "no match", query: "mainframe", want: 0},
		{name: "empty query returns all", query: "", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Len(t, svc.Filter("prod", tt.query), tt.want)
		})
	}
}

func TestFilterUnknownServer(t *testing.T) {
	t.Parallel()

	svc := NewService()
	assert.Empty(t, svc.Filter("nowhere", "anything"))
}
