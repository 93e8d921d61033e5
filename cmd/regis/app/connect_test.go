package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnury/regis/pkg/boundary"
	"github.com/jnury/regis/pkg/config"
)

func TestPickTargetByNameOrID(t *testing.T) {
	t.Parallel()

	available := []boundary.Target{
		{ID: "ttcp_web", Name: "web-frontend"},
		{ID: "ttcp_db", Name: "db-primary"},
	}
	cfg := config.Default()

	target, err := pickTarget(available, []string{"prod", "db-primary"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "ttcp_db", target.ID)

	target, err = pickTarget(available, []string{"prod", "ttcp_web"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "web-frontend", target.Name)

	_, err = pickTarget(available, []string{"prod", "mainframe"}, cfg)
	assert.Error(t, err)
}

func TestPickTargetAutoConnectSingle(t *testing.T) {
	t.Parallel()

	available := []boundary.Target{{ID: "ttcp_only", Name: "only"}}

	cfg := config.Default()
	target, err := pickTarget(available, []string{"prod"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "ttcp_only", target.ID)

	cfg.Connection.AutoConnectSingleTarget = false
	_, err = pickTarget(available, []string{"prod"}, cfg)
	assert.Error(t, err)
}

func TestPickTargetAmbiguous(t *testing.T) {
	t.Parallel()

	available := []boundary.Target{{ID: "a"}, {ID: "b"}}
	_, err := pickTarget(available, []string{"prod"}, config.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 targets")
}

func TestPickTargetNoneAvailable(t *testing.T) {
	t.Parallel()

	_, err := pickTarget(nil, []string{"prod"}, config.Default())
	assert.Error(t, err)
}

func TestConnectionType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rdp", connectionType(&boundary.Target{Type: "rdp"}))
	assert.Equal(t, "ssh", connectionType(&boundary.Target{Type: "ssh"}))
	assert.Equal(t, "tcp", connectionType(&boundary.Target{Type: "tcp"}))
	assert.Equal(t, "tcp", connectionType(&boundary.Target{Type: "postgres"}))
	assert.Equal(t, "tcp", connectionType(&boundary.Target{}))
}

func TestPromptScope(t *testing.T) {
	t.Parallel()

	scopes := []boundary.Scope{{ID: "o_first"}, {ID: "o_second"}}

	scopeID, err := promptScope(strings.NewReader("2\n"), scopes)
	require.NoError(t, err)
	assert.Equal(t, "o_second", scopeID)

	scopeID, err = promptScope(strings.NewReader("o_first\n"), scopes)
	require.NoError(t, err)
	assert.Equal(t, "o_first", scopeID)

	_, err = promptScope(strings.NewReader(""), scopes)
	assert.Error(t, err)
}
