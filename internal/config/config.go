// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Bot      BotConfig
	Storage  StorageConfig
	Platform PlatformConfig
	Server   ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// BotConfig holds the channel-provisioning behavior knobs.
type BotConfig struct {
	// ChannelPrefix is prepended to the sanitized username (default: "times-").
	ChannelPrefix string
	// DefaultCategory is the fallback category and the cohort suffix (default: "times").
	DefaultCategory string
	// PrivateChannels controls whether personal channels deny @everyone visibility.
	PrivateChannels bool
	// TrustMarker authorizes command senders whose role name contains it (case-insensitive).
	TrustMarker string
	// CommandPrefix introduces admin commands in message bodies (default: "!").
	CommandPrefix string
	// AdminChannel restricts admin commands to a channel with this name; empty disables the restriction.
	AdminChannel string
	// ViewerRoleIDs are roles granted visibility into every personal channel.
	ViewerRoleIDs []string
}

// StorageConfig holds the guild configuration store settings.
type StorageConfig struct {
	// Driver selects the store backend: "file" or "badger".
	Driver string
	// Path is the config document path (file driver) or database directory (badger driver).
	Path string
	// WatchConfig reloads the file-backed store when the document changes on disk.
	WatchConfig bool
}

// PlatformConfig holds chat-platform client settings.
type PlatformConfig struct {
	// Driver selects the platform client: "memory" is the in-process simulator.
	Driver string
	// Token is the platform credential; required by real client adapters.
	Token string
}

// ServerConfig holds the HTTP status server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")

	channelPrefix := flag.String("channel-prefix", "", "Prefix for personal channel names (default: times-)")
	defaultCategory := flag.String("default-category", "", "Fallback category name (default: times)")
	privateChannels := flag.String("private-channels", "", "Make personal channels private (default: true)")
	trustMarker := flag.String("trust-marker", "", "Role-name substring that grants admin command access")
	commandPrefix := flag.String("command-prefix", "", "Admin command prefix (default: !)")
	adminChannel := flag.String("admin-channel", "", "Channel name admin commands are restricted to (empty: any channel)")
	viewerRoles := flag.String("viewer-roles", "", "Comma-separated role IDs granted visibility into personal channels")

	storageDriver := flag.String("storage-driver", "", "Config store backend: file or badger (default: file)")
	storagePath := flag.String("storage-path", "", "Config store path (default: ~/.times-bot/config.json)")
	watchConfig := flag.String("watch-config", "", "Reload file-backed store on external edits (default: false)")

	platformDriver := flag.String("platform-driver", "", "Platform client driver (default: memory)")

	serverPort := flag.String("port", "", "Status server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Bot: BotConfig{
			ChannelPrefix:   getConfigValue(*channelPrefix, "CHANNEL_PREFIX", "times-"),
			DefaultCategory: getConfigValue(*defaultCategory, "DEFAULT_CATEGORY", "times"),
			PrivateChannels: getBoolConfigValue(*privateChannels, "PRIVATE_CHANNELS", true),
			TrustMarker:     getConfigValue(*trustMarker, "TRUST_MARKER", "bot-admin"),
			CommandPrefix:   getConfigValue(*commandPrefix, "COMMAND_PREFIX", "!"),
			AdminChannel:    getConfigValue(*adminChannel, "ADMIN_CHANNEL", "bot-config"),
			ViewerRoleIDs:   splitList(getConfigValue(*viewerRoles, "VIEWER_ROLE_IDS", "")),
		},
		Storage: StorageConfig{
			Driver:      getConfigValue(*storageDriver, "STORAGE_DRIVER", "file"),
			Path:        getConfigValue(*storagePath, "STORAGE_PATH", ""),
			WatchConfig: getBoolConfigValue(*watchConfig, "WATCH_CONFIG", false),
		},
		Platform: PlatformConfig{
			Driver: getConfigValue(*platformDriver, "PLATFORM_DRIVER", "memory"),
			Token:  getConfigValue("", "PLATFORM_TOKEN", ""),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
	}

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Expand and validate the storage path.
	if err := cfg.expandStoragePath(); err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Bot.ChannelPrefix == "" {
		return errors.New("CHANNEL_PREFIX cannot be empty")
	}
	if c.Bot.DefaultCategory == "" {
		return errors.New("DEFAULT_CATEGORY cannot be empty")
	}
	if c.Bot.CommandPrefix == "" {
		return errors.New("COMMAND_PREFIX cannot be empty")
	}

	validDrivers := map[string]bool{
		"file":   true,
		"badger": true,
	}
	if !validDrivers[c.Storage.Driver] {
		return fmt.Errorf("invalid storage driver: %s (must be file or badger)", c.Storage.Driver)
	}

	if c.Storage.Path == "" {
		return errors.New("storage path cannot be empty after expansion")
	}

	if c.Platform.Driver == "" {
		return errors.New("PLATFORM_DRIVER is required")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandStoragePath expands ~ and makes the path absolute.
// Defaults to ~/.times-bot/config.json (file driver) or ~/.times-bot/state (badger driver).
func (c *Config) expandStoragePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, ".times-bot", "config.json")
	if c.Storage.Driver == "badger" {
		defaultPath = filepath.Join(homeDir, ".times-bot", "state")
	}

	expanded, err := expandPath(c.Storage.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.Path = expanded
	return nil
}

// splitList splits a comma-separated value into trimmed, non-empty entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Strip surrounding quotes.
		value = strings.Trim(value, `"'`)

		// Only set if not already present in the environment.
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}
