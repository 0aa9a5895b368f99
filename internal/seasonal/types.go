package seasonal

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
)

// Record is one input row keyed by field name. Records are mutated in
// place: Adjust appends one column per value field and table id.
type Record map[string]any

// Options configures one Adjust or Custom call.
type Options struct {
	DateField   string   `json:"date_field" yaml:"date_field" validate:"required"`
	ValueFields []string `json:"value_fields" yaml:"value_fields" validate:"required,min=1,dive,fieldname"`
	TableIDs    []string `json:"table_ids" yaml:"table_ids" validate:"required,min=1,dive,tableid"`
	// OutputDir keeps intermediate files when set; otherwise a temporary
	// directory is used and removed when the call returns.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir"`
	// Log forwards the external binary's output to the logger.
	Log bool `json:"log,omitempty" yaml:"log"`
	// InputFilePath names a caller-managed specification for Custom.
	InputFilePath string `json:"input_file_path,omitempty" yaml:"input_file_path"`
}

// AdjustedRow is one data row of an output table.
type AdjustedRow struct {
	Month string `json:"month"` // YYYY-MM
	Val   string `json:"val"`   // exactly two decimals
}

// File naming shared by the generator, the external binary and the parser.
const (
	specPrefix    = "seasonal_"
	specExtension = ".spc"
)

// SpecBaseName is the extensionless name of the specification for field.
func SpecBaseName(field string) string {
	return specPrefix + field
}

// SpecPath is where the specification for field is written inside dir.
func SpecPath(dir, field string) string {
	return filepath.Join(dir, SpecBaseName(field)+specExtension)
}

// TablePath is where the external binary saves table for field inside dir.
func TablePath(dir, field, table string) string {
	return filepath.Join(dir, SpecBaseName(field)+"."+table)
}

// ValueColumn names the value column of a saved table.
func ValueColumn(field, table string) string {
	return SpecBaseName(field) + "." + table
}

// ColumnName names the merged output column for field and table.
func ColumnName(field, table string) string {
	return field + "_" + table
}

// FormatValue renders a record value as it appears in a data grid slot.
// Missing values render as the empty string.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
