package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValidate(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoadBytesOverridesSelectFields(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
session_timeout: 45s
max_sequence_errors: 3
`))
	require.NoError(t, err)

	require.Equal(t, Default().ValidationTimeout, cfg.ValidationTimeout)
	require.Equal(t, 3, cfg.MaxSequenceErrors)
}

func TestLoadRejectsOversizeImageBudget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dfucore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_image_size: 2097152\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds the 1 MiB flash budget")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
