package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// Paths contains the application paths, all resolved against the
// directory of the running executable rather than the working directory.
type Paths struct {
	ExecutableDir string
	LogsDir       string
	BinaryDir     string
}

// GetPaths returns the application paths relative to the executable location
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return NewPaths(filepath.Dir(exe)), nil
}

// NewPaths lays out the standard directory structure under baseDir:
//
//	<base>/
//	  ├── x13binary/<platform>/bin/x13ashtml
//	  └── logs/
func NewPaths(baseDir string) *Paths {
	return &Paths{
		ExecutableDir: baseDir,
		LogsDir:       filepath.Join(baseDir, DefaultLogsDir),
		BinaryDir:     filepath.Join(baseDir, DefaultBinaryDir),
	}
}

// EnsureDirectories creates the writable directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// PlatformDir maps a GOOS value to the bundled binary subdirectory.
func PlatformDir(goos string) string {
	switch goos {
	case "windows":
		return "win"
	case "darwin":
		return "osx"
	default:
		return "linux"
	}
}

// X13BinaryPath resolves the adjustment binary for the current platform.
// An explicit BinaryPath always wins; a relative BinaryDir is taken
// relative to the executable directory.
func (p *Paths) X13BinaryPath(cfg X13Config) string {
	return p.x13BinaryPathFor(cfg, runtime.GOOS)
}

func (p *Paths) x13BinaryPathFor(cfg X13Config, goos string) string {
	if cfg.BinaryPath != "" {
		return cfg.BinaryPath
	}

	dir := cfg.BinaryDir
	if dir == "" {
		dir = p.BinaryDir
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(p.ExecutableDir, dir)
	}

	name := BinaryName
	if goos == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, PlatformDir(goos), "bin", name)
}

// PrepareLogging places a relative log file in the logs directory and
// creates that directory when the log output includes a file.
func (p *Paths) PrepareLogging(cfg *LoggingConfig) error {
	if cfg.Output != "file" && cfg.Output != "both" {
		return nil
	}
	if filepath.IsAbs(cfg.FilePath) {
		return os.MkdirAll(filepath.Dir(cfg.FilePath), 0755)
	}
	cfg.FilePath = p.GetLogPath(filepath.Base(cfg.FilePath))
	return p.EnsureDirectories()
}
