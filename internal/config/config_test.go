package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout)
				assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)

				assert.Equal(t, DefaultBinaryDir, cfg.X13.BinaryDir)
				assert.Equal(t, []string{"d11"}, cfg.X13.DefaultTables)
				assert.False(t, cfg.X13.Log)

				assert.Equal(t, DefaultMaxRecords, cfg.Limits.MaxRecords)
				assert.Equal(t, int64(DefaultMaxConcurrentRuns), cfg.Limits.MaxConcurrentRuns)

				assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
				assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"SEASONAL_SERVER_PORT":                "9090",
				"SEASONAL_LOGGING_LEVEL":              "debug",
				"SEASONAL_X13_BINARY_PATH":            "/opt/x13/x13ashtml",
				"SEASONAL_X13_DEFAULT_TABLES":         "d10,d11,d12",
				"SEASONAL_X13_LOG":                    "true",
				"SEASONAL_LIMITS_MAX_CONCURRENT_RUNS": "4",
				"SEASONAL_X13_SPEC_ROOT":              "/srv/specs",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "/opt/x13/x13ashtml", cfg.X13.BinaryPath)
				assert.Equal(t, []string{"d10", "d11", "d12"}, cfg.X13.DefaultTables)
				assert.True(t, cfg.X13.Log)
				assert.Equal(t, int64(4), cfg.Limits.MaxConcurrentRuns)
				assert.Equal(t, "/srv/specs", cfg.X13.SpecRoot)
			},
		},
		{
			name: "yaml file overlays defaults",
			fileContent: `
server:
  port: 7070
x13:
  work_root: /var/tmp/seasonal
  default_tables: [d11, d12]
limits:
  max_records: 500
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "/var/tmp/seasonal", cfg.X13.WorkRoot)
				assert.Equal(t, []string{"d11", "d12"}, cfg.X13.DefaultTables)
				assert.Equal(t, 500, cfg.Limits.MaxRecords)
				// untouched sections keep defaults
				assert.Equal(t, "info", cfg.Logging.Level)
			},
		},
		{
			name:        "environment wins over yaml file",
			env:         map[string]string{"SEASONAL_SERVER_PORT": "6060"},
			fileContent: "server:\n  port: 7070\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6060, cfg.Server.Port)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"SEASONAL_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "unsupported trace exporter",
			env:     map[string]string{"SEASONAL_TELEMETRY_TRACE_EXPORTER": "jaeger"},
			wantErr: true,
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"SEASONAL_LIMITS_MAX_RECORDS": "lots"},
			wantErr: true,
		},
		{
			name: "unknown logging output falls back to console",
			env:  map[string]string{"SEASONAL_LOGGING_OUTPUT": "syslog"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "console", cfg.Logging.Output)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if tt.fileContent != "" {
				path := filepath.Join(t.TempDir(), "seasonal.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.fileContent), 0644))
				t.Setenv("SEASONAL_CONFIG_FILE", path)
			} else {
				t.Setenv("SEASONAL_CONFIG_FILE", "")
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv("SEASONAL_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seasonal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0644))
	t.Setenv("SEASONAL_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("SEASONAL_CONFIG_FILE", filepath.Join("..", "..", "configs", "seasonal.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
