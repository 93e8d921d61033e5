package boundary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jnury/regis/pkg/logger"
)

const (
	// tokenEnvVar is the environment variable the boundary CLI reads the
	// session token from. Passing the token this way keeps it off the
	// command line and out of process listings.
	tokenEnvVar = "BOUNDARY_TOKEN"

	defaultCommandTimeout = 30 * time.Second
)

// commandResult captures the output of one CLI invocation.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner executes a command to completion. extraEnv entries are
// appended to the inherited environment. Replaceable in tests.
type commandRunner func(ctx context.Context, extraEnv []string, name string, args ...string) (*commandResult, error)

func defaultRunner(ctx context.Context, extraEnv []string, name string, args ...string) (*commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // CLI path comes from validated config
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The command ran and failed; the caller decides what that means.
			return result, nil
		}
		return nil, fmt.Errorf("failed to execute %s: %w", name, err)
	}
	return result, nil
}

// CLIClient talks to one controller by executing the boundary CLI with
// -format json and parsing its output.
type CLIClient struct {
	cliPath string
	addr    string
	timeout time.Duration
	run     commandRunner
}

// CLIOption configures a CLIClient.
type CLIOption func(*CLIClient)

// WithCommandTimeout bounds individual CLI invocations.
func WithCommandTimeout(d time.Duration) CLIOption {
	return func(c *CLIClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// withRunner substitutes the command runner, for tests.
func withRunner(run commandRunner) CLIOption {
	return func(c *CLIClient) { c.run = run }
}

// NewCLIClient creates a client for the controller at addr using the
// boundary CLI at cliPath.
func NewCLIClient(cliPath, addr string, opts ...CLIOption) *CLIClient {
	c := &CLIClient{
		cliPath: cliPath,
		addr:    addr,
		timeout: defaultCommandTimeout,
		run:     defaultRunner,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// exec runs one CLI invocation with the configured timeout. The full
// command line is logged; the environment (which may carry the token) is
// not.
func (c *CLIClient) exec(ctx context.Context, extraEnv []string, args ...string) (*commandResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logger.Debugw("executing boundary CLI", "path", c.cliPath, "args", strings.Join(args, " "))
	result, err := c.run(runCtx, extraEnv, c.cliPath, args...)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		logger.Debugw("boundary CLI command failed",
			"args", strings.Join(args, " "), "exit_code", result.ExitCode)
	}
	return result, nil
}

func (c *CLIClient) withAddr(args ...string) []string {
	return append(args, "-addr", c.addr)
}

func tokenEnv(token string) []string {
	if token == "" {
		return nil
	}
	return []string{tokenEnvVar + "=" + token}
}

// Verify checks that the CLI binary is present and runnable.
func (c *CLIClient) Verify(ctx context.Context) error {
	result, err := c.exec(ctx, nil, "version")
	if err != nil {
		return fmt.Errorf("boundary CLI not runnable at %s: %w", c.cliPath, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("boundary CLI verification failed: %s", strings.TrimSpace(result.Stderr))
	}
	logger.Debugw("boundary CLI verified", "path", c.cliPath)
	return nil
}

// DiscoverAuthMethods lists the controller's auth methods in discovery order.
func (c *CLIClient) DiscoverAuthMethods(ctx context.Context) ([]AuthMethod, error) {
	result, err := c.exec(ctx, nil, c.withAddr("auth-methods", "list", "-format", "json")...)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("failed to list auth methods: %s", strings.TrimSpace(result.Stderr))
	}
	return parseAuthMethods([]byte(result.Stdout))
}

// DiscoverScopes lists the scopes visible to the token.
func (c *CLIClient) DiscoverScopes(ctx context.Context, token string) ([]Scope, error) {
	result, err := c.exec(ctx, tokenEnv(token), c.withAddr("scopes", "list", "-format", "json")...)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("failed to list scopes: %s", strings.TrimSpace(result.Stderr))
	}
	return parseScopes([]byte(result.Stdout))
}

// ListTargets lists the targets visible to the token, optionally limited to
// one scope.
func (c *CLIClient) ListTargets(ctx context.Context, token, scopeID string) ([]Target, error) {
	args := []string{"targets", "list", "-format", "json"}
	if scopeID != "" {
		args = append(args, "-scope-id", scopeID)
	}
	result, err := c.exec(ctx, tokenEnv(token), c.withAddr(args...)...)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("failed to list targets: %s", strings.TrimSpace(result.Stderr))
	}
	return parseTargets([]byte(result.Stdout))
}

// AuthorizeSession asks the controller to authorize a session for a target.
func (c *CLIClient) AuthorizeSession(ctx context.Context, token, targetID, hostID string) (*SessionAuthorization, error) {
	args := []string{"targets", "authorize-session", "-id", targetID, "-format", "json"}
	if hostID != "" {
		args = append(args, "-host-id", hostID)
	}
	result, err := c.exec(ctx, tokenEnv(token), c.withAddr(args...)...)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("failed to authorize session for target %s: %s",
			targetID, strings.TrimSpace(result.Stderr))
	}
	return parseSessionAuthorization([]byte(result.Stdout))
}
