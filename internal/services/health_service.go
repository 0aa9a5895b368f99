package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"seasonalcli/internal/config"
)

// HealthService provides health check functionality
type HealthService struct {
	version    string
	binaryPath string
	workRoot   string
	startTime  time.Time
	logger     *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual dependency health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service for the given binary and work root.
// An empty workRoot means os.TempDir.
func NewHealthService(version, binaryPath, workRoot string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("binary_path", binaryPath))

	return &HealthService{
		version:    version,
		binaryPath: binaryPath,
		workRoot:   workRoot,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether an adjustment run could start right now
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"x13":       hs.checkBinary(),
			"workspace": hs.checkWorkRoot(),
		},
	}

	for name, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "ReadinessCheck: dependency not ready",
				slog.String("dependency", name),
				slog.String("message", sh.Message))
		}
	}

	return status
}

// Ready reports whether every dependency is ready
func (s HealthStatus) Ready() bool {
	return s.Status == "ready"
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"app":          config.AppName,
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"platform_dir": config.PlatformDir(runtime.GOOS),
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
	}
}

// checkBinary checks the external adjustment binary is present
func (hs *HealthService) checkBinary() ServiceHealth {
	info, err := os.Stat(hs.binaryPath)
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("x13 binary not found: %s", hs.binaryPath),
		}
	}
	if info.IsDir() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("x13 binary path is a directory: %s", hs.binaryPath),
		}
	}

	return ServiceHealth{Status: "ready", Message: hs.binaryPath}
}

// checkWorkRoot checks a temporary work directory can be created
func (hs *HealthService) checkWorkRoot() ServiceHealth {
	root := hs.workRoot
	if root == "" {
		root = os.TempDir()
	}

	dir, err := os.MkdirTemp(root, "seasonal-probe-*")
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("cannot create work directory: %v", err),
		}
	}
	os.RemoveAll(dir)

	return ServiceHealth{Status: "ready", Message: root}
}
