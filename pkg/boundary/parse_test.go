package boundary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthMethods(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"items": [
			{
				"id": "amoidc_1234567890",
				"name": "Corporate SSO",
				"type": "oidc",
				"description": "Company identity provider",
				"attributes": {"issuer": "https://sso.example.com/realms/corp"}
			},
			{
				"id": "ampw_0987654321",
				"name": "Password",
				"type": "password"
			}
		]
	}`)

	methods, err := parseAuthMethods(data)
	require.NoError(t, err)
	require.Len(t, methods, 2)

	assert.Equal(t, "amoidc_1234567890", methods[0].ID)
	assert.Equal(t, "oidc", methods[0].Type)
	assert.Equal(t, "https://sso.example.com/realms/corp", methods[0].Issuer)
	assert.Equal(t, "ampw_0987654321", methods[1].ID)
	assert.Empty(t, methods[1].Issuer)
}

func TestParseAuthMethodsEmpty(t *testing.T) {
	t.Parallel()

	methods, err := parseAuthMethods([]byte(`{"items": []}`))
	require.NoError(t, err)
	assert.Empty(t, methods)
}

func TestParseScopes(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"items": [
			{"id": "o_prod", "name": "Production", "type": "org"},
			{"id": "p_web", "name": "Web Servers", "type": "project", "description": "frontend fleet"}
		]
	}`)

	scopes, err := parseScopes(data)
	require.NoError(t, err)
	require.Len(t, scopes, 2)
	assert.Equal(t, "o_prod", scopes[0].ID)
	assert.Equal(t, "frontend fleet", scopes[1].Description)
}

func TestParseTargets(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"items": [
			{"id": "ttcp_abc", "name": "db-primary", "type": "tcp", "address": "10.0.0.5", "default_port": 5432}
		]
	}`)

	targets, err := parseTargets(data)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "ttcp_abc", targets[0].ID)
	assert.Equal(t, 5432, targets[0].DefaultPort)
}

func TestParseSessionAuthorization(t *testing.T) {
	t.Parallel()

	t.Run("wrapped item", func(t *testing.T) {
		t.Parallel()
		data := []byte(`{
			"item": {
				"authorization_token": "at_secret",
				"session_id": "s_123",
				"target_id": "ttcp_abc",
				"scope_id": "p_web",
				"expiration_time": "2026-09-01T10:00:00Z"
			}
		}`)

		authz, err := parseSessionAuthorization(data)
		require.NoError(t, err)
		assert.Equal(t, "at_secret", authz.AuthorizationToken)
		assert.Equal(t, "s_123", authz.SessionID)
		assert.Equal(t, "ttcp_abc", authz.TargetID)
	})

	t.Run("top level", func(t *testing.T) {
		t.Parallel()
		data := []byte(`{"authorization_token": "at_plain", "session_id": "s_456"}`)

		authz, err := parseSessionAuthorization(data)
		require.NoError(t, err)
		assert.Equal(t, "at_plain", authz.AuthorizationToken)
		assert.Equal(t, "s_456", authz.SessionID)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		_, err := parseSessionAuthorization([]byte(`{"session_id": "s_789"}`))
		assert.Error(t, err)
	})
}

func TestParseAuthResult(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"token": "tok_secret",
		"user_id": "u_alice",
		"expiration_time": "2026-09-05T08:30:00Z"
	}`)

	result, err := parseAuthResult(data)
	require.NoError(t, err)
	assert.Equal(t, "tok_secret", result.Token)
	assert.Equal(t, "u_alice", result.UserID)
	assert.Equal(t, time.Date(2026, 9, 5, 8, 30, 0, 0, time.UTC), result.ExpiresAt)
}

func TestParseAuthResultBadExpiry(t *testing.T) {
	t.Parallel()

	_, err := parseAuthResult([]byte(`{"token": "tok", "expiration_time": "not-a-time"}`))
	assert.Error(t, err)
}

func TestParseConnectionInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		output      string
		wantAddress string
		wantPort    int
		wantErr     bool
	}{
		{
			name: "full banner",
			output: `Proxy listening information:
  Address:             127.0.0.1
  Connection Limit:    1
  Expiration:          Mon, 01 Sep 2026 10:00:00 CEST
  Port:                52341
  Protocol:            tcp
  Session ID:          s_1234567890`,
			wantAddress: "127.0.0.1",
			wantPort:    52341,
		},
		{
			name:        "port only defaults address to loopback",
			output:      "Port: 9000",
			wantAddress: "127.0.0.1",
			wantPort:    9000,
		},
		{
			name:    "no port",
			output:  "Address: 127.0.0.1\nwaiting for session...",
			wantErr: true,
		},
		{
			name:    "zero port",
			output:  "Port: 0",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			address, port, err := parseConnectionInfo(tt.output)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddress, address)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}
