package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/sync/semaphore"

	apperrors "seasonalcli/internal/errors"
	"seasonalcli/internal/infrastructure"
)

// RunLimiter caps how many requests run the external binary at once.
// Requests over the cap wait until a slot frees or their context ends.
type RunLimiter struct {
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewRunLimiter creates a limiter admitting max concurrent runs
func NewRunLimiter(max int64, logger *slog.Logger) *RunLimiter {
	if max <= 0 {
		max = 1
	}
	return &RunLimiter{
		sem:    semaphore.NewWeighted(max),
		logger: logger,
	}
}

// Handler implements the concurrency cap
func (l *RunLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := l.sem.Acquire(ctx, 1); err != nil {
			l.logger.WarnContext(ctx, "gave up waiting for a run slot",
				"path", r.URL.Path,
				"error", err.Error(),
			)
			problem := apperrors.NewProblemDetails(http.StatusServiceUnavailable, apperrors.TypeServiceBusy,
				"Service Unavailable", "No adjustment slot became available", r.URL.Path).
				WithExtension("trace_id", infrastructure.GetTraceID(ctx))
			render.Render(w, r, problem)
			return
		}
		defer l.sem.Release(1)

		next.ServeHTTP(w, r)
	})
}
