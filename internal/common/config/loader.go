// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "starter/internal/common/errors"
)

const (
	EnvPrefix = "STARTER"
	DebugEnv  = "DEBUG"
)

// Load reads .env, an optional config.yaml from ./configs or the working
// directory, and STARTER_* environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found in the working directory, its
// parents, or the module root.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "starter")
	v.SetDefault("app.version", "")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.base_dir", "")

	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.output_dir", "output")
	v.SetDefault("paths.input_file", "input.json")
	v.SetDefault("paths.output_prefix", "output")

	v.SetDefault("tasks.count", 3)
	v.SetDefault("tasks.delay_ms", 1000)

	v.SetDefault("pipeline.strict_input", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.stdout", true)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.redis.address", "")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key_prefix", "starter:")
	v.SetDefault("storage.redis.ttl_sec", 0)
	v.SetDefault("storage.postgres.host", "")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.database", "")
	v.SetDefault("storage.postgres.user", "")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.table", "pipeline_outputs")
	v.SetDefault("storage.postgres.max_connections", 5)

	v.SetDefault("metrics.textfile_path", "")
	v.SetDefault("validation.input_schema", "")
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		if strVal, ok := v.Get(key).(string); ok && strings.Contains(strVal, "$") {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideFromEnv applies variables that do not follow the STARTER_ prefix.
func overrideFromEnv(cfg *Config) {
	if val, ok := os.LookupEnv(DebugEnv); ok {
		cfg.App.Debug = strings.ToLower(val) == "true"
	}
}

// applyDefaults fills derived values: version, base dir and absolute paths.
func applyDefaults(cfg *Config) error {
	if cfg.App.Version == "" {
		cfg.App.Version = Version
	}

	if cfg.App.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cfg.App.BaseDir = wd
	}

	cfg.Paths.DataDir = resolve(cfg.App.BaseDir, cfg.Paths.DataDir)
	cfg.Paths.OutputDir = resolve(cfg.App.BaseDir, cfg.Paths.OutputDir)

	if cfg.Logging.File == "" {
		cfg.Logging.File = cfg.App.Name + ".log"
	}
	if cfg.App.Debug {
		cfg.Logging.Level = "debug"
	}
	return nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return apperrors.NewConfigInvalidError("app.name is required")
	}
	if cfg.Paths.InputFile == "" {
		return apperrors.NewConfigInvalidError("paths.input_file is required")
	}
	if cfg.Paths.OutputPrefix == "" {
		return apperrors.NewConfigInvalidError("paths.output_prefix is required")
	}
	if cfg.Tasks.Count <= 0 {
		return apperrors.NewConfigInvalidError("tasks.count must be positive")
	}
	if cfg.Tasks.DelayMS < 0 {
		return apperrors.NewConfigInvalidError("tasks.delay_ms must not be negative")
	}

	switch cfg.Storage.Backend {
	case BackendFile:
	case BackendRedis:
		if cfg.Storage.Redis.Address == "" {
			return apperrors.NewConfigInvalidError("storage.redis.address is required")
		}
	case BackendPostgres:
		if cfg.Storage.Postgres.Host == "" {
			return apperrors.NewConfigInvalidError("storage.postgres.host is required")
		}
		if cfg.Storage.Postgres.Database == "" {
			return apperrors.NewConfigInvalidError("storage.postgres.database is required")
		}
		if cfg.Storage.Postgres.User == "" {
			return apperrors.NewConfigInvalidError("storage.postgres.user is required")
		}
	default:
		return apperrors.NewConfigInvalidError(fmt.Sprintf("unknown storage.backend %q", cfg.Storage.Backend))
	}

	return nil
}

// EnsureDirectories creates the data and output directories, parents included.
func EnsureDirectories(cfg *Config) error {
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.NewDirectoryCreateError(dir, err)
		}
	}
	return nil
}

// InputPath is the location LoadData reads from.
func (c *Config) InputPath() string {
	return filepath.Join(c.Paths.DataDir, c.Paths.InputFile)
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
