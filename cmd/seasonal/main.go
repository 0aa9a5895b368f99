// Command seasonal adjusts the value columns of a CSV, JSON or XLSX file
// with x13ashtml and writes the records back with one <field>_<table>
// column per value field and table id.
//
//	seasonal -in sales.csv -out adjusted.xlsx -date date -values sales,units -tables d10,d11
//	seasonal -custom ./specs/mine -log
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"seasonalcli/internal/config"
	"seasonalcli/internal/dataprocessing"
	"seasonalcli/internal/exporter"
	"seasonalcli/internal/infrastructure"
	"seasonalcli/internal/seasonal"
	"seasonalcli/internal/validation"
)

// cliOptions holds the parsed command line
type cliOptions struct {
	in        string
	out       string
	date      string
	values    []string
	tables    []string
	outputDir string
	custom    string
	log       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("Seasonal adjustment failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := config.GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.PrepareLogging(&cfg.Logging); err != nil {
		slog.Warn("Failed to prepare log directory", "error", err)
	}

	logger, err := infrastructure.InitializeLoggerWithConsole(cfg.Logging, os.Stderr)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	invoker := seasonal.NewX13Invoker(paths.X13BinaryPath(cfg.X13), logger)
	return execute(ctx, opts, cfg, invoker, logger, stdout)
}

// parseFlags parses and checks the command line
func parseFlags(args []string, output io.Writer) (*cliOptions, error) {
	fs := flag.NewFlagSet("seasonal", flag.ContinueOnError)
	fs.SetOutput(output)

	in := fs.String("in", "", "input file (.csv, .json or .xlsx)")
	out := fs.String("out", "", "output file (.csv, .json or .xlsx)")
	date := fs.String("date", "date", "name of the YYYY-MM date column")
	values := fs.String("values", "", "comma separated value columns to adjust")
	tables := fs.String("tables", "", "comma separated x13 table ids (defaults to the configured tables)")
	outputDir := fs.String("output-dir", "", "keep intermediate files in this directory")
	custom := fs.String("custom", "", "run a caller-managed specification (path without .spc) and exit")
	logOutput := fs.Bool("log", false, "log the output of x13ashtml")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	opts := &cliOptions{
		in:        *in,
		out:       *out,
		date:      *date,
		values:    splitList(*values),
		tables:    splitList(*tables),
		outputDir: *outputDir,
		custom:    *custom,
		log:       *logOutput,
	}

	if opts.custom != "" {
		return opts, nil
	}
	if opts.in == "" {
		return nil, errors.New("-in is required")
	}
	if opts.out == "" {
		return nil, errors.New("-out is required")
	}
	if len(opts.values) == 0 {
		return nil, errors.New("-values is required")
	}
	return opts, nil
}

// execute runs one adjustment or custom invocation
func execute(ctx context.Context, opts *cliOptions, cfg *config.Config, invoker seasonal.Invoker, logger *slog.Logger, stdout io.Writer) error {
	adjuster := seasonal.NewAdjuster(invoker, logger, &seasonal.AdjusterOptions{
		WorkRoot:   cfg.X13.WorkRoot,
		MaxRecords: cfg.Limits.MaxRecords,
	})

	validator := validation.NewFileValidator(logger)

	if opts.custom != "" {
		if err := validator.ValidateSpecFile(opts.custom); err != nil {
			return err
		}
		if err := adjuster.Custom(ctx, seasonal.Options{InputFilePath: opts.custom, Log: opts.log}); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "custom specification %s completed\n", opts.custom)
		return nil
	}

	if err := validator.ValidateInputFile(opts.in); err != nil {
		return err
	}
	if err := validator.ValidateOutputFile(opts.out); err != nil {
		return err
	}
	if opts.outputDir != "" {
		if err := validator.ValidateOutputDirectory(opts.outputDir); err != nil {
			return err
		}
	}

	ds, err := dataprocessing.LoadFile(opts.in)
	if err != nil {
		return err
	}

	tables := opts.tables
	if len(tables) == 0 {
		tables = cfg.X13.DefaultTables
	}

	logger.Info("Loaded input",
		slog.String("path", opts.in),
		slog.Int("records", len(ds.Records)),
		slog.Any("columns", ds.Columns))

	records, err := adjuster.Adjust(ctx, ds.Records, seasonal.Options{
		DateField:   opts.date,
		ValueFields: opts.values,
		TableIDs:    tables,
		OutputDir:   opts.outputDir,
		Log:         opts.log,
	})
	if err != nil {
		return err
	}

	adjusted := exporter.AdjustedColumns(opts.values, tables)
	columns := exporter.Columns(ds.Columns, opts.values, tables)
	if err := exporter.NewRecordExporter("").Export(opts.out, columns, records, adjusted); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "adjusted %d records (%s) -> %s\n", len(records), strings.Join(adjusted, ", "), opts.out)
	return nil
}

// splitList splits a comma separated flag value, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
