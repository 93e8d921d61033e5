package boundary

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedCall captures one invocation handed to the fake runner.
type recordedCall struct {
	env  []string
	name string
	args []string
}

// fakeRunner replays canned results and records every call.
type fakeRunner struct {
	calls   []recordedCall
	results []*commandResult
	err     error
}

func (f *fakeRunner) run(_ context.Context, extraEnv []string, name string, args ...string) (*commandResult, error) {
	f.calls = append(f.calls, recordedCall{env: extraEnv, name: name, args: args})
	if f.err != nil {
		return nil, f.err
	}
	result := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return result, nil
}

func newTestClient(runner *fakeRunner) *CLIClient {
	return NewCLIClient("boundary", "https://boundary.example.com", withRunner(runner.run))
}

func TestVerify(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: []*commandResult{{Stdout: "Version information:\n  Version: 0.15.0\n"}}}
	client := newTestClient(runner)

	require.NoError(t, client.Verify(context.Background()))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"version"}, runner.calls[0].args)
}

func TestVerifyFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: []*commandResult{{Stderr: "exec format error", ExitCode: 1}}}
	client := newTestClient(runner)

	err := client.Verify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec format error")
}

func TestDiscoverAuthMethods(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: []*commandResult{{
		Stdout: `{"items": [{"id": "amoidc_1", "type": "oidc", "attributes": {"issuer": "https://sso.example.com"}}]}`,
	}}}
	client := newTestClient(runner)

	methods, err := client.DiscoverAuthMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "amoidc_1", methods[0].ID)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "boundary", call.name)
	assert.Equal(t, []string{"auth-methods", "list", "-format", "json", "-addr", "https://boundary.example.com"}, call.args)
	assert.Empty(t, call.env, "unauthenticated discovery must not carry a token")
}

func TestDiscoverScopesPassesTokenViaEnv(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: []*commandResult{{Stdout: `{"items": [{"id": "o_1", "name": "Org"}]}`}}}
	client := newTestClient(runner)

	scopes, err := client.DiscoverScopes(context.Background(), "tok_secret")
	require.NoError(t, err)
	require.Len(t, scopes, 1)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"BOUNDARY_TOKEN=tok_secret"}, runner.calls[0].env)
	assert.NotContains(t, strings.Join(runner.calls[0].args, " "), "tok_secret")
}

func TestListTargetsScopeFlag(t *testing.T) {
	t.Parallel()

	t.Run("with scope", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{results: []*commandResult{{Stdout: `{"items": []}`}}}
		client := newTestClient(runner)

		targets, err := client.ListTargets(context.Background(), "tok", "p_web")
		require.NoError(t, err)
		assert.Empty(t, targets)
		assert.Contains(t, runner.calls[0].args, "-scope-id")
		assert.Contains(t, runner.calls[0].args, "p_web")
	})

	t.Run("without scope", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{results: []*commandResult{{Stdout: `{"items": []}`}}}
		client := newTestClient(runner)

		_, err := client.ListTargets(context.Background(), "tok", "")
		require.NoError(t, err)
		assert.NotContains(t, runner.calls[0].args, "-scope-id")
	})
}

func TestListTargetsCommandFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: []*commandResult{{Stderr: "error: token expired", ExitCode: 1}}}
	client := newTestClient(runner)

	_, err := client.ListTargets(context.Background(), "tok", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")
}

func TestAuthorizeSession(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: []*commandResult{{
		Stdout: `{"item": {"authorization_token": "at_1", "session_id": "s_1", "target_id": "ttcp_1"}}`,
	}}}
	client := newTestClient(runner)

	authz, err := client.AuthorizeSession(context.Background(), "tok", "ttcp_1", "")
	require.NoError(t, err)
	assert.Equal(t, "at_1", authz.AuthorizationToken)

	call := runner.calls[0]
	assert.Contains(t, call.args, "authorize-session")
	assert.Contains(t, call.args, "ttcp_1")
	assert.NotContains(t, call.args, "-host-id")
}

func TestAuthorizeSessionWithHost(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: []*commandResult{{
		Stdout: `{"authorization_token": "at_2", "session_id": "s_2"}`,
	}}}
	client := newTestClient(runner)

	_, err := client.AuthorizeSession(context.Background(), "tok", "ttcp_1", "h_9")
	require.NoError(t, err)
	assert.Contains(t, runner.calls[0].args, "-host-id")
	assert.Contains(t, runner.calls[0].args, "h_9")
}

func TestTokenEnv(t *testing.T) {
	t.Parallel()

	assert.Nil(t, tokenEnv(""))
	assert.Equal(t, []string{"BOUNDARY_TOKEN=abc"}, tokenEnv("abc"))
}
