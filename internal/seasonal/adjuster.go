package seasonal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	apperrors "seasonalcli/internal/errors"
	"seasonalcli/internal/files"
	"seasonalcli/internal/infrastructure"
)

// Run modes reported in logs and metrics
const (
	ModeAdjust = "adjust"
	ModeCustom = "custom"
)

// AdjusterOptions contains optional collaborators for an Adjuster
type AdjusterOptions struct {
	// WorkRoot is the parent of temporary work directories; empty means os.TempDir.
	WorkRoot string
	// MaxRecords rejects larger inputs when positive.
	MaxRecords int
	Tracer     trace.Tracer
	Metrics    *infrastructure.BusinessMetrics
}

// Adjuster runs the seasonal adjustment pipeline. All per-run state lives
// in the call, so one Adjuster may serve concurrent runs that use distinct
// output directories.
type Adjuster struct {
	invoker    Invoker
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *infrastructure.BusinessMetrics
	validate   *validator.Validate
	workRoot   string
	maxRecords int
}

// NewAdjuster creates an adjuster around invoker
func NewAdjuster(invoker Invoker, logger *slog.Logger, options *AdjusterOptions) *Adjuster {
	if logger == nil {
		logger = slog.Default()
	}
	if options == nil {
		options = &AdjusterOptions{}
	}

	tracer := options.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer("seasonal")
	}

	return &Adjuster{
		invoker:    invoker,
		logger:     infrastructure.WithComponent(logger, "seasonal"),
		tracer:     tracer,
		metrics:    options.Metrics,
		validate:   newValidator(),
		workRoot:   options.WorkRoot,
		maxRecords: options.MaxRecords,
	}
}

// Adjust appends one <field>_<table> column per value field and table id
// to every record and returns the same slice. Intermediate files live in
// opts.OutputDir, or in a temporary directory removed before returning.
func (a *Adjuster) Adjust(ctx context.Context, records []Record, opts Options) (result []Record, err error) {
	start := time.Now()
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := a.tracer.Start(ctx, "seasonal.adjust", trace.WithAttributes(
		attribute.Int("records", len(records)),
		attribute.StringSlice("value_fields", opts.ValueFields),
		attribute.StringSlice("table_ids", opts.TableIDs),
	))
	defer span.End()

	a.trackActive(ctx, 1)
	defer func() {
		a.trackActive(ctx, -1)
		infrastructure.RecordRunMetrics(ctx, a.metrics, ModeAdjust, len(records), time.Since(start), err)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			a.logger.ErrorContext(ctx, "Adjustment failed",
				slog.String("error", err.Error()),
				slog.String("error_type", string(apperrors.TypeOf(err))),
				slog.Duration("duration", time.Since(start)))
		}
	}()

	if len(records) == 0 {
		return nil, apperrors.NewValidationError("no records to adjust")
	}
	if a.maxRecords > 0 && len(records) > a.maxRecords {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%d records exceeds the limit of %d", len(records), a.maxRecords)).
			WithContext("max_records", a.maxRecords)
	}
	if err := validateOptions(a.validate, opts); err != nil {
		return nil, err
	}

	ext, err := DetectExtent(records, opts.DateField)
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "Starting adjustment",
		slog.Int("records", len(records)),
		slog.String("extent", ext.String()),
		slog.Any("value_fields", opts.ValueFields),
		slog.Any("table_ids", opts.TableIDs))

	ws, err := files.Acquire(opts.OutputDir, a.workRoot)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to prepare work directory", err)
	}
	defer func() {
		if rerr := ws.Release(); rerr != nil {
			err = errors.Join(err, apperrors.NewStorageError("failed to clean up work directory", rerr).
				WithContext("dir", ws.Dir()))
			result = nil
		}
	}()

	results := make([]TableResult, 0, len(opts.ValueFields)*len(opts.TableIDs))
	for _, field := range opts.ValueFields {
		fieldResults, err := a.adjustField(ctx, ws, ext, records, field, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, fieldResults...)
	}

	// Merge only after every table parsed so a failure leaves records untouched
	if err := Merge(records, opts.DateField, results); err != nil {
		return nil, err
	}

	if !ws.Temporary() {
		kept, lerr := ws.ListFiles(specPrefix)
		if lerr != nil {
			a.logger.WarnContext(ctx, "Failed to list work directory",
				slog.String("dir", ws.Dir()),
				slog.String("error", lerr.Error()))
		} else {
			a.logger.InfoContext(ctx, "Kept intermediate files",
				slog.String("dir", ws.Dir()),
				slog.Any("files", kept))
		}
	}

	a.logger.InfoContext(ctx, "Adjustment completed",
		slog.Int("records", len(records)),
		slog.Int("columns", len(results)),
		slog.Duration("duration", time.Since(start)))

	return records, nil
}

// adjustField writes the specification for one field, runs the external
// step and parses every requested table.
func (a *Adjuster) adjustField(ctx context.Context, ws *files.Workspace, ext DateExtent, records []Record, field string, opts Options) ([]TableResult, error) {
	ctx, span := a.tracer.Start(ctx, "seasonal.adjust_field", trace.WithAttributes(
		attribute.String("field", field),
	))
	defer span.End()

	specBase, err := WriteSpec(ws, ext, records, opts.DateField, field, opts.TableIDs)
	if err != nil {
		return nil, err
	}
	a.logger.DebugContext(ctx, "Wrote specification",
		slog.String("field", field),
		slog.String("path", SpecPath(ws.Dir(), field)))

	if err := a.invoke(ctx, specBase, opts.Log); err != nil {
		return nil, err
	}

	results := make([]TableResult, 0, len(opts.TableIDs))
	for _, table := range opts.TableIDs {
		rows, sentinel, err := ParseTableFile(TablePath(ws.Dir(), field, table), ValueColumn(field, table))
		if err != nil {
			return nil, err
		}
		infrastructure.RecordTableMetrics(ctx, a.metrics, table, len(rows), sentinel)

		a.logger.DebugContext(ctx, "Parsed output table",
			slog.String("field", field),
			slog.String("table", table),
			slog.Int("rows", len(rows)),
			slog.Int("sentinel_rows", sentinel))

		results = append(results, TableResult{Field: field, Table: table, Rows: rows})
	}
	return results, nil
}

// Custom runs the external step once on a caller-managed specification.
// Nothing is generated, parsed or cleaned up.
func (a *Adjuster) Custom(ctx context.Context, opts Options) (err error) {
	start := time.Now()
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := a.tracer.Start(ctx, "seasonal.custom", trace.WithAttributes(
		attribute.String("input_file_path", opts.InputFilePath),
	))
	defer span.End()

	a.trackActive(ctx, 1)
	defer func() {
		a.trackActive(ctx, -1)
		infrastructure.RecordRunMetrics(ctx, a.metrics, ModeCustom, 0, time.Since(start), err)
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
	}()

	if opts.InputFilePath == "" {
		return apperrors.NewValidationError("input_file_path is required")
	}

	a.logger.InfoContext(ctx, "Running custom specification",
		slog.String("input_file_path", opts.InputFilePath))

	return a.invoke(ctx, opts.InputFilePath, opts.Log)
}

// invoke runs the external step once and records its duration
func (a *Adjuster) invoke(ctx context.Context, specBase string, log bool) error {
	ctx, span := a.tracer.Start(ctx, "seasonal.invoke", trace.WithAttributes(
		attribute.String("spec", specBase),
	))
	defer span.End()

	start := time.Now()
	err := a.invoker.Run(ctx, specBase, log)
	infrastructure.RecordInvocationMetrics(ctx, a.metrics, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		if apperrors.TypeOf(err) == "" {
			err = apperrors.NewExternalError("adjustment step failed", err).WithContext("spec", specBase)
		}
		return err
	}
	return nil
}

func (a *Adjuster) trackActive(ctx context.Context, delta int64) {
	if a.metrics == nil {
		return
	}
	a.metrics.ActiveRuns.Add(ctx, delta)
}
