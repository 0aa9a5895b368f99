package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "SEASONAL"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	X13       X13Config       `yaml:"x13" envconfig:"X13"`
	Limits    LimitsConfig    `yaml:"limits" envconfig:"LIMITS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// X13Config locates the external adjustment binary and its working area.
type X13Config struct {
	// BinaryPath overrides platform-based binary selection when set.
	BinaryPath string `yaml:"binary_path" envconfig:"BINARY_PATH"`
	// BinaryDir is the root of the bundled binaries, relative to the executable.
	BinaryDir string `yaml:"binary_dir" envconfig:"BINARY_DIR"`
	// WorkRoot is the parent of per-run temp directories. Empty means os.TempDir.
	WorkRoot      string   `yaml:"work_root" envconfig:"WORK_ROOT"`
	DefaultTables []string `yaml:"default_tables" envconfig:"DEFAULT_TABLES"`
	Log           bool     `yaml:"log" envconfig:"LOG"`
	// AllowOutputDir lets HTTP callers keep intermediate files in a
	// directory they name. The CLI always may.
	AllowOutputDir bool `yaml:"allow_output_dir" envconfig:"ALLOW_OUTPUT_DIR"`
	// SpecRoot is the only directory HTTP custom runs may read from.
	SpecRoot string `yaml:"spec_root" envconfig:"SPEC_ROOT"`
}

// LimitsConfig bounds the work a single process accepts.
type LimitsConfig struct {
	MaxRecords        int     `yaml:"max_records" envconfig:"MAX_RECORDS"`
	MaxConcurrentRuns int64   `yaml:"max_concurrent_runs" envconfig:"MAX_CONCURRENT_RUNS"`
	RPS               float64 `yaml:"rps" envconfig:"RPS"`
	Burst             int     `yaml:"burst" envconfig:"BURST"`
}

// TelemetryConfig selects trace and metric exporters
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable are left untouched
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML file values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	// Adjustment runs block on the external binary, so a zero write timeout is allowed
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must not be negative")
	}

	if c.Limits.MaxRecords <= 0 {
		return fmt.Errorf("max records must be positive")
	}

	if c.Limits.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("max concurrent runs must be positive")
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}

	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", c.Telemetry.MetricExporter)
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/seasonal.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"seasonal.yaml",
		"configs/seasonal.yaml",
		"../configs/seasonal.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    10 << 20, // 10MB
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/seasonal.log",
		},
		X13: X13Config{
			BinaryDir:     DefaultBinaryDir,
			DefaultTables: []string{"d11"},
		},
		Limits: LimitsConfig{
			MaxRecords:        DefaultMaxRecords,
			MaxConcurrentRuns: DefaultMaxConcurrentRuns,
			RPS:               DefaultRateLimit,
			Burst:             DefaultBurstSize,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
