package boundary

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/jnury/regis/pkg/logger"
)

// connectBannerTimeout bounds how long Connect waits for the proxy banner.
const connectBannerTimeout = 15 * time.Second

// Connect launches the CLI connect command for an authorized session. The
// command keeps running as the local proxy for the lifetime of the
// connection; Connect returns once the proxy banner reports the local
// address and port. The child is left running and identified by the
// returned PID so the connection manager can terminate it later.
func (c *CLIClient) Connect(ctx context.Context, authorizationToken, connType string) (*Endpoint, error) {
	args := []string{"connect", connType, "-authz-token", authorizationToken}

	//nolint:gosec // CLI path comes from validated config
	cmd := exec.Command(c.cliPath, args...)
	cmd.Stdin = nil

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open connect stdout: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start connect command: %w", err)
	}
	pid := cmd.Process.Pid
	logger.Debugw("proxy process started", "type", connType, "pid", pid)

	// Reap the child in the background so it never lingers as a zombie
	// after termination.
	go func() {
		_ = cmd.Wait()
	}()

	banner := newBannerScanner(stdout)

	deadline := time.After(connectBannerTimeout)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			return nil, ctx.Err()
		case <-deadline:
			_ = cmd.Process.Kill()
			return nil, fmt.Errorf("timed out waiting for proxy banner: %s", strings.TrimSpace(stderr.String()))
		case <-tick.C:
			output, eof := banner.snapshot()
			address, port, err := parseConnectionInfo(output)
			if err == nil {
				return &Endpoint{Address: address, Port: port, PID: pid}, nil
			}
			if eof {
				_ = cmd.Process.Kill()
				msg := strings.TrimSpace(stderr.String())
				if msg == "" {
					msg = "connect command exited before reporting a proxy endpoint"
				}
				return nil, fmt.Errorf("failed to establish proxy: %s", msg)
			}
		}
	}
}

// bannerScanner accumulates child stdout so the proxy banner can be scraped
// while the stream keeps being drained.
type bannerScanner struct {
	mu  sync.Mutex
	buf strings.Builder
	eof bool
}

func newBannerScanner(r io.Reader) *bannerScanner {
	s := &bannerScanner{}
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			s.mu.Lock()
			s.buf.WriteString(scanner.Text())
			s.buf.WriteByte('\n')
			s.mu.Unlock()
		}
		s.mu.Lock()
		s.eof = true
		s.mu.Unlock()
	}()
	return s
}

func (s *bannerScanner) snapshot() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String(), s.eof
}
