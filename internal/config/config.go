package config

import (
	"fmt"
	"os"
	"path/filepath"
)

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

// LoadConfig resolves the rosesong directory layout and makes sure every
// required directory and the playlist file exist. ROSESONG_HOME overrides
// the default ~/.config/rosesong root.
func LoadConfig() (*Config, error) {
	root := os.Getenv("ROSESONG_HOME")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, ErrConfig("cannot resolve home directory: " + err.Error())
		}
		root = filepath.Join(home, ".config", "rosesong")
	}

	cfg := &Config{
		RootDir:      root,
		LogDir:       filepath.Join(root, "logs"),
		PlaylistDir:  filepath.Join(root, "playlists"),
		DataDir:      filepath.Join(root, "data"),
		PlaylistPath: filepath.Join(root, "playlists", "playlist.toml"),
		LogLevel:     getenv("ROSESONG_LOG_LEVEL", "info"),
		LogToStderr:  getenv("ROSESONG_LOG_STDERR", "false") == "true",
	}

	for _, dir := range []string{cfg.LogDir, cfg.PlaylistDir, cfg.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ErrConfig(fmt.Sprintf("create %s: %v", dir, err))
		}
	}

	if _, err := os.Stat(cfg.PlaylistPath); os.IsNotExist(err) {
		if err := os.WriteFile(cfg.PlaylistPath, nil, 0o644); err != nil {
			return nil, ErrConfig("create playlist file: " + err.Error())
		}
	}

	return cfg, nil
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
