package process

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTempPIDDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	original := pidFilePath
	pidFilePath = func(connectionID string) (string, error) {
		return filepath.Join(dir, fmt.Sprintf("regis-%s.pid", connectionID)), nil
	}
	t.Cleanup(func() { pidFilePath = original })
}

func TestPIDFileRoundTrip(t *testing.T) {
	withTempPIDDir(t)

	require.NoError(t, WritePIDFile("conn-1", 12345))

	pid, err := ReadPIDFile("conn-1")
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)
}

func TestReadPIDFileMissing(t *testing.T) {
	withTempPIDDir(t)

	_, err := ReadPIDFile("nonexistent")
	assert.Error(t, err)
}

func TestRemovePIDFileIdempotent(t *testing.T) {
	withTempPIDDir(t)

	require.NoError(t, WritePIDFile("conn-2", 999))
	require.NoError(t, RemovePIDFile("conn-2"))
	require.NoError(t, RemovePIDFile("conn-2"))

	_, err := ReadPIDFile("conn-2")
	assert.Error(t, err)
}
