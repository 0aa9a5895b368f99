package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "seasonalcli/internal/errors"
	"seasonalcli/internal/seasonal"
)

// Format identifies an input file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// utf8BOM is written by Excel in front of CSV exports
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Dataset is a loaded record collection with its column order
type Dataset struct {
	Columns []string
	Records []seasonal.Record
}

// DetectFormat picks the format from the file extension
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("unsupported input file type %q", filepath.Ext(path)))
	}
}

// LoadFile reads records from path, choosing the loader by extension
func LoadFile(path string) (*Dataset, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open input file", err).WithContext("path", path)
	}
	defer f.Close()

	ds, err := Load(f, format)
	if err != nil {
		return nil, err
	}

	slog.Info("Loaded input records",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("records", len(ds.Records)),
		slog.Int("columns", len(ds.Columns)))

	return ds, nil
}

// Load reads records in the given format
func Load(r io.Reader, format Format) (*Dataset, error) {
	switch format {
	case FormatCSV:
		return LoadCSV(r)
	case FormatJSON:
		return LoadJSON(r)
	case FormatXLSX:
		return LoadXLSX(r)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported format %q", format))
	}
}

// LoadCSV reads a comma-separated file with a header row
func LoadCSV(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read CSV input", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to parse CSV input", err)
	}
	return fromRows(rows)
}

// LoadXLSX reads the first sheet of an Excel workbook, header row first
func LoadXLSX(r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError("workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sheet", err).WithContext("sheet", sheets[0])
	}

	slog.Debug("Reading workbook sheet",
		slog.String("sheet_name", sheets[0]),
		slog.Int("total_rows", len(rows)))

	return fromRows(rows)
}

// fromRows turns a header row and data rows into records. Short rows leave
// trailing columns unset and blank rows are skipped.
func fromRows(rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("input has no header row", nil)
	}

	header := make([]string, len(rows[0]))
	seen := make(map[string]bool, len(header))
	for i, name := range rows[0] {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, apperrors.NewParsingError(fmt.Sprintf("header column %d is empty", i+1), nil)
		}
		if seen[name] {
			return nil, apperrors.NewParsingError(fmt.Sprintf("duplicate header %q", name), nil)
		}
		seen[name] = true
		header[i] = name
	}

	ds := &Dataset{Columns: header}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rec := make(seasonal.Record, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = strings.TrimSpace(row[i])
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// LoadJSON reads an array of flat objects. Key order of each new key's
// first appearance becomes the column order.
func LoadJSON(r io.Reader) (*Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	ds := &Dataset{}
	seen := make(map[string]bool)
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		rec := make(seasonal.Record)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, apperrors.NewParsingError("failed to parse JSON input", err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, apperrors.NewParsingError(fmt.Sprintf("unexpected token %v", tok), nil)
			}

			var value any
			if err := dec.Decode(&value); err != nil {
				return nil, apperrors.NewParsingError(fmt.Sprintf("failed to decode %q", key), err)
			}
			rec[key] = value

			if !seen[key] {
				seen[key] = true
				ds.Columns = append(ds.Columns, key)
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		ds.Records = append(ds.Records, rec)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return ds, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return apperrors.NewParsingError(fmt.Sprintf("unexpected end of JSON input, want %q", want), err)
	}
	if err != nil {
		return apperrors.NewParsingError("failed to parse JSON input", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return apperrors.NewParsingError(fmt.Sprintf("expected %q, got %v", want, tok), nil)
	}
	return nil
}
