// internal/common/config/config.go
package config

import "fmt"

// Version is the application version, overridable at build time with
// -ldflags "-X starter/internal/common/config.Version=1.2.3".
var Version = "0.1.0"

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Paths      PathsConfig      `mapstructure:"paths"`
	Tasks      TasksConfig      `mapstructure:"tasks"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Validation ValidationConfig `mapstructure:"validation"`
}

// --- Core App Config ---
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Debug   bool   `mapstructure:"debug"`
	BaseDir string `mapstructure:"base_dir"`
}

// PathsConfig locates the input record and where output records go.
// Relative DataDir and OutputDir are resolved against App.BaseDir.
type PathsConfig struct {
	DataDir      string `mapstructure:"data_dir"`
	OutputDir    string `mapstructure:"output_dir"`
	InputFile    string `mapstructure:"input_file"`
	OutputPrefix string `mapstructure:"output_prefix"`
}

// TasksConfig drives the asynchronous demo.
type TasksConfig struct {
	Count   int `mapstructure:"count"`
	DelayMS int `mapstructure:"delay_ms"` // milliseconds
}

type PipelineConfig struct {
	StrictInput bool `mapstructure:"strict_input"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
	Stdout bool   `mapstructure:"stdout"`
}

type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TTLSec    int    `mapstructure:"ttl_sec"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"sslmode"`
	Table          string `mapstructure:"table"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// MetricsConfig enables writing a prometheus textfile after each run.
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// ValidationConfig optionally points at a JSON schema for input records.
type ValidationConfig struct {
	InputSchema string `mapstructure:"input_schema"`
}
