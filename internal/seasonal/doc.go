// Package seasonal prepares monthly series for the X-13ARIMA-SEATS binary
// and merges its saved tables back onto the input records.
//
// A run flows through four steps, all driven by Adjuster.Adjust:
//
//   - DetectExtent finds the first and last year and the start month
//   - BuildSpec lays each value field onto a year-by-month grid
//   - an Invoker runs the binary once per value field
//   - ParseTable reads each saved table and Merge joins it by date
//
// Every run receives its own Options and work directory, so nothing is
// shared between calls. The binary is reached through the Invoker
// interface; X13Invoker is the production implementation and tests use
// InvokerFunc stubs that write canned tables.
//
// Example usage:
//
//	adj := seasonal.NewAdjuster(seasonal.NewX13Invoker(binPath, logger), logger, nil)
//	out, err := adj.Adjust(ctx, records, seasonal.Options{
//	    DateField:   "date",
//	    ValueFields: []string{"sales"},
//	    TableIDs:    []string{"d11"},
//	})
package seasonal
