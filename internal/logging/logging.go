package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/huahuadeliaoliao/RoseSong/internal/config"
)

// Setup installs the process-wide slog logger. Logs go to a size-rotated
// file under the config log directory; rotation keeps a few old files so a
// long-running daemon never fills the disk.
func Setup(cfg *config.Config) *slog.Logger {
	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "rosesong.log"),
		MaxSize:    1, // megabytes
		MaxBackups: 3,
	}

	var w io.Writer = rotated
	if cfg.LogToStderr {
		w = io.MultiWriter(os.Stderr, rotated)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
