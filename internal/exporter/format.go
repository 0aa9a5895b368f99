package exporter

import (
	"fmt"

	"seasonalcli/internal/seasonal"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatCell renders a record value. Adjusted columns hold float64 values
// rounded to two decimals, or "" when no adjusted row matched.
func formatCell(v any, adjusted bool) string {
	if f, ok := v.(float64); ok && adjusted {
		return formatFloat(f)
	}
	return seasonal.FormatValue(v)
}
