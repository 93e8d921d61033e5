package connections

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// stateFilePath resolves the connection state file location. Replaceable in
// tests.
var stateFilePath = func() (string, error) {
	return xdg.DataFile(filepath.Join("regis", "connections.json"))
}

// loadState reads the persisted connection list. A missing file means no
// connections.
func loadState() (map[string]*Connection, error) {
	path, err := stateFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state file path: %w", err)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is fixed under the XDG data dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]*Connection), nil
		}
		return nil, fmt.Errorf("failed to read connection state: %w", err)
	}
	if len(data) == 0 {
		return make(map[string]*Connection), nil
	}

	var connections map[string]*Connection
	if err := json.Unmarshal(data, &connections); err != nil {
		return nil, fmt.Errorf("failed to parse connection state: %w", err)
	}
	if connections == nil {
		connections = make(map[string]*Connection)
	}
	return connections, nil
}

// saveState writes the connection list atomically by renaming a temp file
// into place.
func saveState(connections map[string]*Connection) error {
	path, err := stateFilePath()
	if err != nil {
		return fmt.Errorf("failed to resolve state file path: %w", err)
	}
	data, err := json.MarshalIndent(connections, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize connection state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write connection state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace connection state: %w", err)
	}
	return nil
}
