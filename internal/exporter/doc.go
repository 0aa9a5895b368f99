// Package exporter writes adjusted records to CSV, Excel or JSON files.
//
// CSVWriter is the low-level CSV writer with header and UTF-8 BOM support.
// RecordExporter lays records out by column: the source columns first, then
// one <field>_<table> column per value field and table id. Adjusted values
// are written with exactly two decimals and unmatched dates stay blank.
//
// Example usage:
//
//	exp := exporter.NewRecordExporter(outDir)
//	cols := exporter.Columns(ds.Columns, opts.ValueFields, opts.TableIDs)
//	err := exp.Export("sales_adjusted.xlsx", cols, records, exporter.AdjustedColumns(opts.ValueFields, opts.TableIDs))
package exporter
