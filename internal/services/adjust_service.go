package services

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	apperrors "seasonalcli/internal/errors"
	"seasonalcli/internal/exporter"
	"seasonalcli/internal/infrastructure"
	"seasonalcli/internal/seasonal"
)

// Adjuster is the pipeline the service drives. *seasonal.Adjuster satisfies it.
type Adjuster interface {
	Adjust(ctx context.Context, records []seasonal.Record, opts seasonal.Options) ([]seasonal.Record, error)
	Custom(ctx context.Context, opts seasonal.Options) error
}

// AdjustServiceOptions contains server policy applied to every request
type AdjustServiceOptions struct {
	// DefaultTables fills in table ids a request leaves empty.
	DefaultTables []string
	// AllowOutputDir lets callers keep intermediate files in a directory
	// of their choosing. When false such requests are rejected.
	AllowOutputDir bool
	// SpecRoot confines custom runs to specifications under this
	// directory. Relative input paths are resolved against it. When empty,
	// custom runs need AllowOutputDir since the binary writes next to the
	// specification.
	SpecRoot string
}

// AdjustResult is the outcome of one adjustment request
type AdjustResult struct {
	Records []seasonal.Record `json:"records"`
	Columns []string          `json:"columns"`
	TraceID string            `json:"trace_id,omitempty"`
}

// CustomResult is the outcome of one custom specification run
type CustomResult struct {
	Status        string `json:"status"`
	InputFilePath string `json:"input_file_path"`
	TraceID       string `json:"trace_id,omitempty"`
}

// AdjustService applies server policy on top of an Adjuster
type AdjustService struct {
	adjuster       Adjuster
	defaultTables  []string
	allowOutputDir bool
	specRoot       string
	logger         *slog.Logger
}

// NewAdjustService creates a new adjust service
func NewAdjustService(adjuster Adjuster, logger *slog.Logger, options *AdjustServiceOptions) *AdjustService {
	if logger == nil {
		logger = slog.Default()
	}
	if options == nil {
		options = &AdjustServiceOptions{}
	}

	specRoot := options.SpecRoot
	if specRoot != "" {
		if abs, err := filepath.Abs(specRoot); err == nil {
			specRoot = abs
		}
	}

	return &AdjustService{
		adjuster:       adjuster,
		defaultTables:  append([]string(nil), options.DefaultTables...),
		allowOutputDir: options.AllowOutputDir,
		specRoot:       specRoot,
		logger:         infrastructure.WithComponent(logger, "adjust_service"),
	}
}

// Adjust runs the pipeline and reports which columns were added
func (s *AdjustService) Adjust(ctx context.Context, records []seasonal.Record, opts seasonal.Options) (*AdjustResult, error) {
	ctx = infrastructure.EnsureTraceID(ctx)

	if opts.OutputDir != "" && !s.allowOutputDir {
		return nil, apperrors.NewValidationError("output_dir is not accepted by this server")
	}
	if opts.InputFilePath != "" {
		return nil, apperrors.NewValidationError("input_file_path is only accepted by custom runs")
	}
	if len(opts.TableIDs) == 0 {
		opts.TableIDs = append([]string(nil), s.defaultTables...)
	}

	s.logger.DebugContext(ctx, "Adjust request accepted",
		slog.Int("records", len(records)),
		slog.Any("value_fields", opts.ValueFields),
		slog.Any("table_ids", opts.TableIDs))

	adjusted, err := s.adjuster.Adjust(ctx, records, opts)
	if err != nil {
		return nil, err
	}

	return &AdjustResult{
		Records: adjusted,
		Columns: exporter.AdjustedColumns(opts.ValueFields, opts.TableIDs),
		TraceID: infrastructure.GetTraceID(ctx),
	}, nil
}

// Custom runs a caller-managed specification once
func (s *AdjustService) Custom(ctx context.Context, inputFilePath string, log bool) (*CustomResult, error) {
	ctx = infrastructure.EnsureTraceID(ctx)

	specBase, err := s.resolveSpec(inputFilePath)
	if err != nil {
		s.logger.WarnContext(ctx, "Custom run refused",
			slog.String("input_file_path", inputFilePath),
			slog.String("error", err.Error()))
		return nil, err
	}

	err = s.adjuster.Custom(ctx, seasonal.Options{InputFilePath: specBase, Log: log})
	if err != nil {
		return nil, err
	}

	return &CustomResult{
		Status:        "completed",
		InputFilePath: specBase,
		TraceID:       infrastructure.GetTraceID(ctx),
	}, nil
}

// resolveSpec applies the custom run policy to a client supplied path
func (s *AdjustService) resolveSpec(inputFilePath string) (string, error) {
	if inputFilePath == "" {
		return "", apperrors.NewValidationError("input_file_path is required")
	}

	if s.specRoot == "" {
		if !s.allowOutputDir {
			return "", apperrors.NewValidationError("custom runs are not accepted by this server")
		}
		return inputFilePath, nil
	}

	path := inputFilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.specRoot, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(s.specRoot, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperrors.NewValidationError("input_file_path must be inside the spec root").
			WithContext("input_file_path", inputFilePath)
	}
	return path, nil
}
