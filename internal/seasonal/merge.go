package seasonal

import (
	"fmt"
	"strconv"

	apperrors "seasonalcli/internal/errors"
)

// TableResult holds the parsed rows of one field and table pair.
type TableResult struct {
	Field string
	Table string
	Rows  []AdjustedRow
}

// Column is the merged record column for the result
func (t TableResult) Column() string {
	return ColumnName(t.Field, t.Table)
}

// Merge sets one column per result on every record: the value of the first
// row whose month equals the record date, or "" when no row matches.
func Merge(records []Record, dateField string, results []TableResult) error {
	for _, res := range results {
		byMonth := make(map[string]float64, len(res.Rows))
		for _, row := range res.Rows {
			if _, seen := byMonth[row.Month]; seen {
				continue
			}
			v, err := strconv.ParseFloat(row.Val, 64)
			if err != nil {
				return apperrors.NewParsingError(fmt.Sprintf("invalid adjusted value %q", row.Val), err).
					WithContext("column", res.Column()).
					WithContext("month", row.Month)
			}
			byMonth[row.Month] = v
		}

		column := res.Column()
		for _, rec := range records {
			date, _ := rec[dateField].(string)
			if v, ok := byMonth[date]; ok {
				rec[column] = v
			} else {
				rec[column] = ""
			}
		}
	}
	return nil
}
