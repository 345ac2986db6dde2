package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hishamahammedkm/taza-chat-cli/internal/logger"
)

type Config struct {
	// ServerURL is the base URL of the chat REST API.
	ServerURL string
	// SocketURL is the base URL used for the Socket.IO event channel.
	// Defaults to ServerURL when unset.
	SocketURL string

	// TazaHome is the directory where the client stores local state.
	TazaHome string
	// AccessKey is the path to the access token file.
	AccessKey string
	// StorageKey is the path to the local storage encryption key file.
	StorageKey string

	// PushoverToken and PushoverUser enable unread-message push
	// notifications when both are set.
	PushoverToken string
	PushoverUser  string

	// LogLevel is the logger verbosity threshold.
	LogLevel logger.Level
	// Debug enables verbose logging.
	Debug bool
}

// Load loads configuration from environment and defaults.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	tazaHome := os.Getenv("TAZA_HOME")
	if tazaHome == "" {
		tazaHome = filepath.Join(homeDir, ".tazachat")
	}
	if err := os.MkdirAll(tazaHome, 0700); err != nil {
		return nil, fmt.Errorf("failed to create taza home: %w", err)
	}

	serverURL := os.Getenv("TAZA_SERVER_URL")
	if serverURL == "" {
		serverURL = "https://chat-api.tazafoods.app"
	}
	socketURL := os.Getenv("TAZA_SOCKET_URL")
	if socketURL == "" {
		socketURL = serverURL
	}

	debug := os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1" ||
		os.Getenv("TAZA_DEBUG") == "true" || os.Getenv("TAZA_DEBUG") == "1"

	level := logger.LevelInfo
	if raw := os.Getenv("TAZA_LOG_LEVEL"); raw != "" {
		parsed, err := logger.ParseLevel(raw)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	if debug && level > logger.LevelDebug {
		level = logger.LevelDebug
	}

	return &Config{
		ServerURL:     serverURL,
		SocketURL:     socketURL,
		TazaHome:      tazaHome,
		AccessKey:     filepath.Join(tazaHome, "access.key"),
		StorageKey:    filepath.Join(tazaHome, "storage.key"),
		PushoverToken: os.Getenv("TAZA_PUSHOVER_TOKEN"),
		PushoverUser:  os.Getenv("TAZA_PUSHOVER_USER"),
		LogLevel:      level,
		Debug:         debug,
	}, nil
}

// Save saves configuration to disk (currently just creates directories).
func (c *Config) Save() error {
	return os.MkdirAll(c.TazaHome, 0700)
}
