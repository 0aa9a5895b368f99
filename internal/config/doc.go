// Package config provides centralized configuration management for seasonalcli.
// It loads configuration from multiple sources, validates it, and resolves
// the filesystem layout the adjustment pipeline works in.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file (seasonal.yaml or $SEASONAL_CONFIG_FILE)
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SEASONAL_<SECTION>_<FIELD>:
//
//	SEASONAL_SERVER_PORT=8080
//	SEASONAL_LOGGING_LEVEL=debug
//	SEASONAL_X13_BINARY_PATH=/opt/x13/bin/x13ashtml
//	SEASONAL_LIMITS_MAX_CONCURRENT_RUNS=4
//
// # Path Management
//
// Paths are resolved relative to the executable, never the working
// directory. The bundled binary lives under x13binary/<platform>/bin:
//
//	paths, err := config.GetPaths()
//	bin := paths.X13BinaryPath(cfg.X13)
package config
