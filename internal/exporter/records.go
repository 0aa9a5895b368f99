package exporter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "seasonalcli/internal/errors"
	"seasonalcli/internal/seasonal"
)

// sheetName names the single sheet of exported workbooks
const sheetName = "adjusted"

// numFmtTwoDecimals is the built-in Excel number format "0.00"
const numFmtTwoDecimals = 2

// RecordExporter writes adjusted records in the format chosen by file extension
type RecordExporter struct {
	csv *CSVWriter
}

// NewRecordExporter creates an exporter resolving relative paths against baseDir
func NewRecordExporter(baseDir string) *RecordExporter {
	return &RecordExporter{csv: NewCSVWriter(baseDir)}
}

// AdjustedColumns lists the merged columns in field by table order
func AdjustedColumns(fields, tables []string) []string {
	cols := make([]string, 0, len(fields)*len(tables))
	for _, field := range fields {
		for _, table := range tables {
			cols = append(cols, seasonal.ColumnName(field, table))
		}
	}
	return cols
}

// Columns appends the adjusted columns to the source columns, skipping any
// the source already has.
func Columns(source, fields, tables []string) []string {
	cols := append([]string(nil), source...)
	present := make(map[string]bool, len(source))
	for _, c := range source {
		present[c] = true
	}
	for _, c := range AdjustedColumns(fields, tables) {
		if !present[c] {
			cols = append(cols, c)
			present[c] = true
		}
	}
	return cols
}

// Rows renders records as string rows in column order
func Rows(records []seasonal.Record, columns, adjusted []string) [][]string {
	isAdjusted := make(map[string]bool, len(adjusted))
	for _, c := range adjusted {
		isAdjusted[c] = true
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = formatCell(rec[col], isAdjusted[col])
		}
		rows[i] = row
	}
	return rows
}

// Export writes records to path as .csv, .xlsx or .json
func (e *RecordExporter) Export(path string, columns []string, records []seasonal.Record, adjusted []string) error {
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		err = e.csv.WriteCSV(path, WriteOptions{
			Headers:   columns,
			Records:   Rows(records, columns, adjusted),
			BOMPrefix: true,
		})
	case ".xlsx":
		err = e.writeXLSX(e.resolvePath(path), columns, records, adjusted)
	case ".json":
		err = e.writeJSON(e.resolvePath(path), records)
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unsupported output file type %q", ext))
	}
	if err != nil {
		return apperrors.NewStorageError("failed to export records", err).WithContext("path", path)
	}
	return nil
}

func (e *RecordExporter) resolvePath(path string) string {
	return e.csv.resolvePath(path)
}

// writeXLSX writes one sheet with a header row. Adjusted columns are
// numeric cells formatted as 0.00.
func (e *RecordExporter) writeXLSX(path string, columns []string, records []seasonal.Record, adjusted []string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	isAdjusted := make(map[string]bool, len(adjusted))
	for _, c := range adjusted {
		isAdjusted[c] = true
	}

	for i, rec := range records {
		row := make([]any, len(columns))
		for j, col := range columns {
			if v, ok := rec[col].(float64); ok && isAdjusted[col] {
				row[j] = v
				continue
			}
			row[j] = formatCell(rec[col], false)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTwoDecimals})
	if err != nil {
		return err
	}
	for j, col := range columns {
		if !isAdjusted[col] || len(records) == 0 {
			continue
		}
		top, err := excelize.CoordinatesToCellName(j+1, 2)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(j+1, len(records)+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, top, bottom, style); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	slog.Info("Writing workbook",
		slog.String("full_path", path),
		slog.Int("record_count", len(records)))

	return f.SaveAs(path)
}

func (e *RecordExporter) writeJSON(path string, records []seasonal.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	slog.Info("Writing JSON file",
		slog.String("full_path", path),
		slog.Int("record_count", len(records)))

	return os.WriteFile(path, data, 0644)
}
