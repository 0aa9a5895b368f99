// Package dataprocessing loads input records for adjustment from CSV, JSON
// or Excel files.
//
// Every loader returns a Dataset: the records keyed by column name plus the
// column order found in the source, so exports can keep the original layout
// and append the adjustment columns after it.
//
// Usage:
//
//	ds, err := dataprocessing.LoadFile("sales.xlsx")
//	if err != nil {
//	    return err
//	}
//	out, err := adjuster.Adjust(ctx, ds.Records, opts)
//
// Cell values are kept as loaded. CSV and Excel cells stay strings, JSON
// numbers stay json.Number, so the specification receives the exact text
// of the source.
package dataprocessing
