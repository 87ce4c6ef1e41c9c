package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigBootstrapsLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "rosesong")
	t.Setenv("ROSESONG_HOME", root)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, root, cfg.RootDir)
	for _, dir := range []string{cfg.LogDir, cfg.PlaylistDir, cfg.DataDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	content, err := os.ReadFile(cfg.PlaylistPath)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestLoadConfigKeepsExistingPlaylist(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ROSESONG_HOME", root)

	_, err := LoadConfig()
	require.NoError(t, err)

	playlistPath := filepath.Join(root, "playlists", "playlist.toml")
	require.NoError(t, os.WriteFile(playlistPath, []byte("[[tracks]]\nbvid = \"BV1\"\n"), 0o644))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	content, err := os.ReadFile(cfg.PlaylistPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "BV1")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ROSESONG_HOME", t.TempDir())
	t.Setenv("ROSESONG_LOG_LEVEL", "debug")
	t.Setenv("ROSESONG_LOG_STDERR", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogToStderr)
}
