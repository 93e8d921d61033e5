package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/jnury/regis/pkg/auth"
	"github.com/jnury/regis/pkg/boundary"
	"github.com/jnury/regis/pkg/config"
	"github.com/jnury/regis/pkg/connections"
	"github.com/jnury/regis/pkg/logger"
	"github.com/jnury/regis/pkg/registry"
	"github.com/jnury/regis/pkg/secrets"
)

// Output format constants.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// serversFileEnvVar optionally points at a system-wide server list merged
// with the user's own.
const serversFileEnvVar = "REGIS_SERVERS_FILE"

func loadRegistry() (*registry.Registry, error) {
	return registry.Load(os.Getenv(serversFileEnvVar))
}

func resolveServer(serverID string) (*registry.Server, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	server, err := reg.Get(serverID)
	if err != nil {
		return nil, err
	}
	return &server, nil
}

// newBoundaryClient builds a CLI-backed client for a server, preferring a
// per-server CLI path over the global one.
func newBoundaryClient(cfg config.Config, server *registry.Server) boundary.Client {
	cliPath := cfg.Boundary.CLIPath
	if server.CLIPath != "" {
		cliPath = server.CLIPath
	}
	if cfg.Boundary.AutoDetect {
		if resolved, err := lookPath(cliPath); err == nil {
			cliPath = resolved
		} else {
			logger.Debugf("CLI %q not found on PATH, using configured path as-is", cliPath)
		}
	}
	return boundary.NewCLIClient(cliPath, server.URL,
		boundary.WithCommandTimeout(cfg.Security.CommandTimeout()))
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// buildManagers wires the config, token store, connection manager, and auth
// manager together. Logout tears down the server's connections.
func buildManagers() (config.Config, *auth.Manager, *connections.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, err
	}

	store, err := secrets.NewStore()
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("failed to open token store: %w", err)
	}

	connMgr, err := connections.NewManager(
		connections.WithRetryAttempts(cfg.Connection.RetryAttempts),
		connections.WithRetryDelay(cfg.Connection.RetryDelay()),
	)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("failed to restore connection state: %w", err)
	}

	authMgr := auth.NewManager(
		func(server *registry.Server) boundary.Client {
			return newBoundaryClient(cfg, server)
		},
		store,
		auth.WithPollInterval(cfg.Auth.PollInterval()),
		auth.WithPollAttempts(cfg.Auth.PollAttempts),
		auth.WithLogoutHook(connMgr.TerminateAllForServer),
	)
	return cfg, authMgr, connMgr, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %v", err)
	}
	fmt.Println(string(data))
	return nil
}
