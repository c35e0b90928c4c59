// Package config loads application configuration from command-line flags,
// environment variables and .env files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Store  StoreConfig
	Backup BackupConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StoreConfig selects and locates the embedded row store.
type StoreConfig struct {
	DataPath string // default: ~/OpenBook
	Driver   string // sqlite or badger
}

// BackupConfig holds backup file and schedule configuration.
type BackupConfig struct {
	Dir      string // default: {data}/backups
	Schedule string // cron expression, empty disables scheduled backups
	Keep     int    // number of backup files retained by prune (default: 7)
}

// Flags are the raw command-line values. Empty means "not given".
type Flags struct {
	Env            string
	LogLevel       string
	DataPath       string
	StoreDriver    string
	BackupDir      string
	BackupSchedule string
	BackupKeep     string
	EnvFile        string
}

// RegisterFlags binds the configuration flags onto fs, typically a cobra
// command's persistent flag set.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Env, "env", "", "Environment (development, staging, production)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.DataPath, "data-path", "", "Directory holding the library database (default: ~/OpenBook)")
	fs.StringVar(&f.StoreDriver, "store", "", "Store engine: sqlite or badger (default: sqlite)")
	fs.StringVar(&f.BackupDir, "backup-dir", "", "Directory for backup files (default: {data}/backups)")
	fs.StringVar(&f.BackupSchedule, "backup-schedule", "", "Cron schedule for automatic backups")
	fs.StringVar(&f.BackupKeep, "backup-keep", "", "Number of backups kept when pruning (default: 7)")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "Path to .env file")
	return f
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(f *Flags) (*Config, error) {
	if f == nil {
		f = &Flags{}
	}

	// Missing .env files are fine.
	_ = loadEnvFile(f.EnvFile)

	keep, err := getIntConfigValue(f.BackupKeep, "BACKUP_KEEP", 7)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(f.Env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(f.LogLevel, "LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			DataPath: getConfigValue(f.DataPath, "DATA_PATH", ""),
			Driver:   strings.ToLower(getConfigValue(f.StoreDriver, "STORE_DRIVER", DriverSQLite)),
		},
		Backup: BackupConfig{
			Dir:      getConfigValue(f.BackupDir, "BACKUP_DIR", ""),
			Schedule: getConfigValue(f.BackupSchedule, "BACKUP_SCHEDULE", ""),
			Keep:     keep,
		},
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverBadger:
	default:
		return fmt.Errorf("invalid store driver: %s (must be sqlite or badger)", c.Store.Driver)
	}

	if c.Store.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup keep must not be negative, got %d", c.Backup.Keep)
	}
	if c.Backup.Schedule != "" {
		if _, err := cron.ParseStandard(c.Backup.Schedule); err != nil {
			return fmt.Errorf("invalid backup schedule %q: %w", c.Backup.Schedule, err)
		}
	}

	return nil
}

// DatabasePath is the SQLite file or Badger directory inside the data path.
func (c *Config) DatabasePath() string {
	if c.Store.Driver == DriverBadger {
		return filepath.Join(c.Store.DataPath, "library.badger")
	}
	return filepath.Join(c.Store.DataPath, "library.db")
}

func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	data, err := expandPath(c.Store.DataPath, filepath.Join(homeDir, "OpenBook"))
	if err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}
	c.Store.DataPath = data

	backups, err := expandPath(c.Backup.Dir, filepath.Join(data, "backups"))
	if err != nil {
		return fmt.Errorf("invalid backup dir: %w", err)
	}
	c.Backup.Dir = backups
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as is.
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

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return absPath, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) (int, error) {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return v, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
