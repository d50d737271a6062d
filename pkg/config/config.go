package config

import (
	"context"
	"time"
)

// Config is the complete tdlimport configuration.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Server     ServerConfig     `koanf:"server"`
	Runtime    RuntimeConfig    `koanf:"runtime"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	CLI        CLIConfig        `koanf:"cli"`
}

// DatabaseConfig selects and parameterizes the destination store driver.
//
// The sqlite driver creates one database file per destination inside Dir.
// The postgres driver maps each destination to a schema of one database.
type DatabaseConfig struct {
	Driver         string          `koanf:"driver"          validate:"oneof=sqlite postgres" env:"DB_DRIVER"`
	Dir            string          `koanf:"dir"                                              env:"DB_DIR"`
	Reset          bool            `koanf:"reset"                                            env:"DB_RESET"`
	BusyTimeout    time.Duration   `koanf:"busy_timeout"    validate:"min=0"                 env:"DB_BUSY_TIMEOUT"`
	ConnString     string          `koanf:"conn_string"                                      env:"DB_CONN_STRING"`
	Host           string          `koanf:"host"                                             env:"DB_HOST"`
	Port           string          `koanf:"port"                                             env:"DB_PORT"`
	User           string          `koanf:"user"                                             env:"DB_USER"`
	Password       SensitiveString `koanf:"password"                                         env:"DB_PASSWORD"        sensitive:"true"`
	DBName         string          `koanf:"name"                                             env:"DB_NAME"`
	SSLMode        string          `koanf:"ssl_mode"                                         env:"DB_SSL_MODE"`
	ConnectTimeout time.Duration   `koanf:"connect_timeout" validate:"min=0"                 env:"DB_CONNECT_TIMEOUT"`
	ConnectRetries uint64          `koanf:"connect_retries"                                  env:"DB_CONNECT_RETRIES"`
}

// IngestConfig controls how a TDL file is interpreted and loaded.
type IngestConfig struct {
	// Precedence decides which task representation wins when a node carries
	// both XML attributes and field child elements.
	Precedence        string        `koanf:"precedence"         validate:"oneof=attributes elements" env:"INGEST_PRECEDENCE"`
	DestinationSuffix string        `koanf:"destination_suffix"                                      env:"INGEST_DESTINATION_SUFFIX"`
	Timeout           time.Duration `koanf:"timeout"            validate:"min=0"                     env:"INGEST_TIMEOUT"`
	MaxUploadBytes    int64         `koanf:"max_upload_bytes"   validate:"min=1"                     env:"INGEST_MAX_UPLOAD_BYTES"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host    string        `koanf:"host"    validate:"required"        env:"SERVER_HOST"`
	Port    int           `koanf:"port"    validate:"min=1,max=65535" env:"SERVER_PORT"`
	Timeout time.Duration `koanf:"timeout" validate:"min=0"           env:"SERVER_TIMEOUT"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error disabled" env:"RUNTIME_LOG_LEVEL"`
	LogJSON  bool   `koanf:"log_json"                                                  env:"RUNTIME_LOG_JSON"`
}

// MonitoringConfig toggles the metrics exporter.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"`
}

// CLIConfig holds values that only make sense for command invocations.
type CLIConfig struct {
	ConfigFile string `koanf:"config_file"`
	EnvFile    string `koanf:"env_file"`
	Format     string `koanf:"format"      validate:"omitempty,oneof=text json" env:"TDL_FORMAT"`
	DryRun     bool   `koanf:"dry_run"`
}

// SensitiveString hides its value when printed or serialized.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// MarshalJSON keeps secrets out of JSON dumps.
func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Value returns the underlying secret.
func (s SensitiveString) Value() string {
	return string(s)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:         "sqlite",
			Dir:            ".",
			Reset:          true,
			BusyTimeout:    5 * time.Second,
			Host:           "localhost",
			Port:           "5432",
			User:           "postgres",
			DBName:         "postgres",
			SSLMode:        "disable",
			ConnectTimeout: 5 * time.Second,
			ConnectRetries: 3,
		},
		Ingest: IngestConfig{
			Precedence:        "attributes",
			DestinationSuffix: ".tdl",
			MaxUploadBytes:    32 << 20,
		},
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		CLI: CLIConfig{
			Format: "text",
		},
	}
}

// Service defines the configuration loading contract.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a configuration key.
	GetSource(key string) SourceType
}

// Source is one layer of configuration data.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the origin of a configuration value.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}
