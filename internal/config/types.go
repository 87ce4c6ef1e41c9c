package config

type Config struct {
	RootDir      string
	LogDir       string
	PlaylistDir  string
	DataDir      string
	PlaylistPath string
	LogLevel     string // debug/info/warn/error
	LogToStderr  bool
}
