package boundary

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/jnury/regis/pkg/logger"
)

// StartAuthentication launches the CLI authenticate command for an OIDC auth
// method. The CLI opens the provider flow and blocks until the provider
// responds, so the command runs as a child process and completion is
// observed through the returned handle.
func (c *CLIClient) StartAuthentication(ctx context.Context, authMethodID string) (PendingAuth, error) {
	args := c.withAddr("authenticate", "oidc", "-auth-method-id", authMethodID, "-format", "json")

	//nolint:gosec // CLI path comes from validated config
	cmd := exec.CommandContext(ctx, c.cliPath, args...)
	cmd.Stdin = nil

	pending := &cliPendingAuth{
		client: c,
		cmd:    cmd,
		done:   make(chan struct{}),
	}
	cmd.Stdout = &pending.stdout
	cmd.Stderr = &pending.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start authentication command: %w", err)
	}
	logger.Debugw("authentication started", "auth_method_id", authMethodID, "pid", cmd.Process.Pid)

	go pending.wait()
	return pending, nil
}

// cliPendingAuth tracks one in-flight authenticate invocation.
type cliPendingAuth struct {
	client *CLIClient
	cmd    *exec.Cmd

	stdout bytes.Buffer
	stderr bytes.Buffer

	done chan struct{}

	mu        sync.Mutex
	result    *AuthResult
	err       error
	cancelled bool
}

// wait blocks on the child and records the outcome. Output buffers are only
// read after Wait returns, so no lock is needed around them.
func (p *cliPendingAuth) wait() {
	defer close(p.done)

	waitErr := p.cmd.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancelled {
		p.err = fmt.Errorf("authentication cancelled")
		return
	}
	if waitErr != nil {
		msg := strings.TrimSpace(p.stderr.String())
		if msg == "" {
			msg = waitErr.Error()
		}
		p.err = fmt.Errorf("authentication command failed: %s", msg)
		return
	}

	result, err := parseAuthResult(p.stdout.Bytes())
	if err != nil {
		p.err = err
		return
	}
	if result.Token == "" {
		// Some CLI versions store the token in their own keyring instead of
		// printing it. Retrieve it from there.
		token, err := p.client.storedToken()
		if err != nil {
			p.err = fmt.Errorf("authentication succeeded but no token was returned: %w", err)
			return
		}
		result.Token = token
	}
	p.result = result
}

// Check reports the current state of the request without blocking.
func (p *cliPendingAuth) Check(_ context.Context) (*AuthResult, bool, error) {
	select {
	case <-p.done:
	default:
		return nil, false, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, true, p.err
	}
	return p.result, true, nil
}

// Cancel kills the child process and discards any partial result. Safe to
// call more than once.
func (p *cliPendingAuth) Cancel() {
	p.mu.Lock()
	if p.cancelled {
		p.mu.Unlock()
		return
	}
	p.cancelled = true
	p.result = nil
	p.mu.Unlock()

	if p.cmd.Process != nil {
		if err := p.cmd.Process.Kill(); err != nil {
			logger.Debugw("failed to kill authentication process", "error", err)
		}
	}
}

// storedToken reads the token the CLI stashed in its own keyring after a
// successful authenticate run.
func (c *CLIClient) storedToken() (string, error) {
	result, err := c.exec(context.Background(), nil, "config", "get-token")
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("config get-token failed: %s", strings.TrimSpace(result.Stderr))
	}
	token := strings.TrimSpace(result.Stdout)
	if token == "" {
		return "", fmt.Errorf("config get-token returned no token")
	}
	return token, nil
}
