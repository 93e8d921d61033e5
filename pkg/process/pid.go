// Package process provides utilities for tracking and terminating the
// proxy child processes that back active connections.
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
)

// pidFilePath resolves the PID file location for a connection. Replaceable
// in tests.
var pidFilePath = func(connectionID string) (string, error) {
	return xdg.DataFile(filepath.Join("regis", "pids", fmt.Sprintf("regis-%s.pid", connectionID)))
}

// WritePIDFile records the proxy process ID for a connection.
func WritePIDFile(connectionID string, pid int) error {
	path, err := pidFilePath(connectionID)
	if err != nil {
		return fmt.Errorf("failed to resolve PID file path: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0600); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// ReadPIDFile returns the recorded proxy process ID for a connection.
func ReadPIDFile(connectionID string) (int, error) {
	path, err := pidFilePath(connectionID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve PID file path: %w", err)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is fixed under the XDG data dir
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse PID file: %w", err)
	}
	return pid, nil
}

// RemovePIDFile deletes the PID file for a connection. A missing file is
// not an error.
func RemovePIDFile(connectionID string) error {
	path, err := pidFilePath(connectionID)
	if err != nil {
		return fmt.Errorf("failed to resolve PID file path: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}
