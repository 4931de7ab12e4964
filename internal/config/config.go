// Package config loads audiounlock settings from the environment.
//
// Values are read from AUDIOUNLOCK_* variables, optionally seeded from a
// .env file. Command-line flags override them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "AUDIOUNLOCK_"

// Config holds all application configuration
type Config struct {
	Batch  BatchConfig
	Server ServerConfig
	Watch  WatchConfig
	Log    LogConfig
}

// BatchConfig holds decode and output configuration
type BatchConfig struct {
	OutputDir      string
	LedgerPath     string
	Workers        int
	MaxArtworkSize int64
	Tagging        bool
	Strict         bool
	Validate       bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Listen      string
	MaxUpload   int64
	EventBuffer int
}

// WatchConfig holds directory watcher configuration
type WatchConfig struct {
	Debounce    time.Duration
	Recursive   bool
	InitialScan bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Batch: BatchConfig{
			OutputDir: ".",
			Workers:   1,
			Tagging:   true,
		},
		Server: ServerConfig{
			Listen:      "127.0.0.1:8080",
			MaxUpload:   256 << 20,
			EventBuffer: 500,
		},
		Watch: WatchConfig{
			Debounce:    500 * time.Millisecond,
			Recursive:   true,
			InitialScan: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadDotEnv reads variables from the given .env files (".env" when none
// are given) without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load returns DefaultConfig overridden by the environment.
func Load() *Config {
	def := DefaultConfig()
	return &Config{
		Batch: BatchConfig{
			OutputDir:      getEnv("OUTPUT", def.Batch.OutputDir),
			LedgerPath:     getEnv("LEDGER", def.Batch.LedgerPath),
			Workers:        getEnvAsInt("WORKERS", def.Batch.Workers),
			MaxArtworkSize: getEnvAsInt64("MAX_ARTWORK", def.Batch.MaxArtworkSize),
			Tagging:        getEnvAsBool("TAG", def.Batch.Tagging),
			Strict:         getEnvAsBool("STRICT", def.Batch.Strict),
			Validate:       getEnvAsBool("VALIDATE", def.Batch.Validate),
		},
		Server: ServerConfig{
			Listen:      getEnv("LISTEN", def.Server.Listen),
			MaxUpload:   getEnvAsInt64("MAX_UPLOAD", def.Server.MaxUpload),
			EventBuffer: getEnvAsInt("EVENT_BUFFER", def.Server.EventBuffer),
		},
		Watch: WatchConfig{
			Debounce:    getEnvAsDuration("WATCH_DEBOUNCE", def.Watch.Debounce),
			Recursive:   getEnvAsBool("WATCH_RECURSIVE", def.Watch.Recursive),
			InitialScan: getEnvAsBool("WATCH_INITIAL_SCAN", def.Watch.InitialScan),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", def.Log.Level),
			Format: getEnv("LOG_FORMAT", def.Log.Format),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(Prefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(Prefix + key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(Prefix + key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(Prefix + key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(Prefix + key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Batch.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Batch.Workers)
	}
	if strings.TrimSpace(c.Batch.OutputDir) == "" {
		return errors.New("output directory is required")
	}
	if c.Batch.MaxArtworkSize < 0 {
		return fmt.Errorf("max artwork size must not be negative, got %d", c.Batch.MaxArtworkSize)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
