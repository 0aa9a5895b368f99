package http

import (
	"context"

	"seasonalcli/internal/seasonal"
	"seasonalcli/internal/services"
)

// AdjustServiceInterface defines the adjustment operations used by AdjustHandler
type AdjustServiceInterface interface {
	Adjust(ctx context.Context, records []seasonal.Record, opts seasonal.Options) (*services.AdjustResult, error)
	Custom(ctx context.Context, inputFilePath string, log bool) (*services.CustomResult, error)
}

// HealthServiceInterface defines the checks used by HealthHandler
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}
