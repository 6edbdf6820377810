package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr           string
	DataDir        string
	RemoteEndpoint string
	AppBase        string
	AdminEmail     string
	// Bcrypt hash of the admin passcode. Admin login is disabled when empty.
	AdminPasscodeHash string
	// Redis Configuration - state falls back to a local file when empty
	RedisURL  string
	StateFile string
	// Autosave quiet period and remote request timeout
	AutosaveQuiet  time.Duration
	RequestTimeout time.Duration
}

func Load() Config {
	return Config{
		Addr:              getenv("CONSOLE_ADDR", ":8686"),
		DataDir:           getenv("CONSOLE_DATA_DIR", "./data"),
		RemoteEndpoint:    getenv("CONSOLE_REMOTE_ENDPOINT", ""),
		AppBase:           getenv("CONSOLE_APP_BASE", "http://localhost:8686"),
		AdminEmail:        getenv("CONSOLE_ADMIN_EMAIL", ""),
		AdminPasscodeHash: getenv("CONSOLE_ADMIN_PASSCODE_HASH", ""),
		RedisURL:          getenv("REDIS_URL", ""),
		StateFile:         getenv("CONSOLE_STATE_FILE", "./data/console_state.json"),
		AutosaveQuiet:     time.Duration(getenvInt("CONSOLE_AUTOSAVE_QUIET_MS", 1200)) * time.Millisecond,
		RequestTimeout:    time.Duration(getenvInt("CONSOLE_REQUEST_TIMEOUT_SECONDS", 20)) * time.Second,
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
