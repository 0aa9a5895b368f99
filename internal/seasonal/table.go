package seasonal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/apd/v3"

	apperrors "seasonalcli/internal/errors"
)

// dateColumn is the header of the compact year-month column in saved tables
const dateColumn = "date"

// ParseTable reads a tab-separated table saved by the external binary.
// Sentinel rows are dropped and counted; every other row must carry a
// six-digit YYYYMM date and a numeric value in valueColumn.
func ParseTable(r io.Reader, valueColumn string) ([]AdjustedRow, int, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, apperrors.NewParsingError("table is empty", nil)
	}
	if err != nil {
		return nil, 0, apperrors.NewParsingError("failed to read table header", err)
	}

	dateIdx, valueIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case dateColumn:
			dateIdx = i
		case valueColumn:
			valueIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, 0, apperrors.NewParsingError(fmt.Sprintf("table has no %q column", dateColumn), nil)
	}
	if valueIdx < 0 {
		return nil, 0, apperrors.NewParsingError(fmt.Sprintf("table has no %q column", valueColumn), nil).
			WithContext("column", valueColumn)
	}

	var (
		rows     []AdjustedRow
		sentinel int
	)
	for line := 2; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, apperrors.NewParsingError("failed to read table row", err).WithContext("line", line)
		}

		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		if dateIdx >= len(fields) || valueIdx >= len(fields) {
			return nil, 0, apperrors.NewParsingError(fmt.Sprintf("row has %d columns", len(fields)), nil).
				WithContext("line", line)
		}

		date := strings.TrimSpace(fields[dateIdx])
		if isSentinel(date) {
			sentinel++
			continue
		}

		month, err := expandCompactDate(date)
		if err != nil {
			return nil, 0, apperrors.NewParsingError(err.Error(), nil).WithContext("line", line)
		}
		val, err := RoundValue(fields[valueIdx])
		if err != nil {
			return nil, 0, apperrors.NewParsingError("invalid table value", err).WithContext("line", line)
		}

		rows = append(rows, AdjustedRow{Month: month, Val: val})
	}

	return rows, sentinel, nil
}

// ParseTableFile opens path and parses it with ParseTable.
func ParseTableFile(path, valueColumn string) ([]AdjustedRow, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, apperrors.NewStorageError("failed to open output table", err).WithContext("path", path)
	}
	defer f.Close()

	rows, sentinel, err := ParseTable(f, valueColumn)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("path", path)
		}
		return nil, 0, err
	}
	return rows, sentinel, nil
}

// isSentinel matches the dash run the binary writes for periods without a value
func isSentinel(date string) bool {
	return date != "" && strings.Trim(date, "-") == ""
}

// expandCompactDate turns 202103 into 2021-03
func expandCompactDate(date string) (string, error) {
	if len(date) != 6 {
		return "", fmt.Errorf("date %q is not YYYYMM", date)
	}
	for _, c := range date {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("date %q is not YYYYMM", date)
		}
	}
	return date[:4] + "-" + date[4:], nil
}

// RoundValue formats a numeric string with exactly two decimals, rounding half
// away from zero on the digits as written, so "1.005" becomes "1.01".
func RoundValue(raw string) (string, error) {
	text := strings.TrimPrefix(strings.TrimSpace(raw), "+")
	if text == "" {
		return "", fmt.Errorf("empty value")
	}

	var d apd.Decimal
	if _, _, err := d.SetString(text); err != nil {
		return "", fmt.Errorf("invalid value %q: %w", raw, err)
	}
	if d.Form != apd.Finite {
		return "", fmt.Errorf("invalid value %q: not finite", raw)
	}

	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp

	var out apd.Decimal
	if _, err := ctx.Quantize(&out, &d, -2); err != nil {
		return "", fmt.Errorf("failed to round %q: %w", raw, err)
	}
	return out.Text('f'), nil
}
