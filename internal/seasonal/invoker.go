package seasonal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	apperrors "seasonalcli/internal/errors"
)

// Invoker runs the external adjustment step for one specification. specBase
// is the specification path without its .spc extension; on success one
// table per requested id exists next to it as <specBase>.<table>.
type Invoker interface {
	Run(ctx context.Context, specBase string, log bool) error
}

// InvokerFunc adapts a function to the Invoker interface
type InvokerFunc func(ctx context.Context, specBase string, log bool) error

// Run calls f
func (f InvokerFunc) Run(ctx context.Context, specBase string, log bool) error {
	return f(ctx, specBase, log)
}

// X13Invoker runs the X-13ARIMA-SEATS binary.
type X13Invoker struct {
	BinaryPath string
	Logger     *slog.Logger
}

// NewX13Invoker creates an invoker for the binary at binaryPath
func NewX13Invoker(binaryPath string, logger *slog.Logger) *X13Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &X13Invoker{BinaryPath: binaryPath, Logger: logger}
}

// Run blocks until the binary exits. Its combined output is logged when
// log is set, and always attached to the error on failure.
func (x *X13Invoker) Run(ctx context.Context, specBase string, log bool) error {
	if _, err := os.Stat(x.BinaryPath); err != nil {
		x.Logger.ErrorContext(ctx, "Adjustment binary not found",
			slog.String("path", x.BinaryPath),
			slog.String("error", err.Error()))
		return apperrors.NewExternalError("adjustment binary not found", err).
			WithContext("binary", x.BinaryPath)
	}

	cmd := exec.CommandContext(ctx, x.BinaryPath, specBase)

	x.Logger.DebugContext(ctx, "Running adjustment binary",
		slog.String("binary", x.BinaryPath),
		slog.String("spec", specBase))

	output, err := cmd.CombinedOutput()
	if log && len(output) > 0 {
		x.Logger.InfoContext(ctx, "Adjustment binary output",
			slog.String("spec", specBase),
			slog.String("output", strings.TrimSpace(string(output))))
	}
	if err != nil {
		x.Logger.ErrorContext(ctx, "Adjustment binary failed",
			slog.String("spec", specBase),
			slog.String("error", err.Error()),
			slog.String("output", string(output)))

		appErr := apperrors.NewExternalError(fmt.Sprintf("adjustment of %s failed", specBase), err).
			WithContext("spec", specBase).
			WithContext("output", string(output))
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			appErr.WithContext("exit_code", exitErr.ExitCode())
		}
		return appErr
	}

	return nil
}
