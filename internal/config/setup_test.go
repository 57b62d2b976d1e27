package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Documents", "AutoChat")

	result, err := Setup(dir)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Empty(t, result.Problems)

	assert.DirExists(t, filepath.Join(dir, LogsDir))
	for _, name := range []string{SettingsFile, MessagesFile, OptionsFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	// The templates form a loadable configuration.
	settings, err := Load(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, settings.Messages)

	t.Run("existing folder is left alone", func(t *testing.T) {
		path := filepath.Join(dir, MessagesFile)
		require.NoError(t, os.WriteFile(path, []byte("mine\n"), 0644))

		result, err := Setup(dir)
		require.NoError(t, err)
		assert.False(t, result.Created)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "mine\n", string(data))
	})
}
