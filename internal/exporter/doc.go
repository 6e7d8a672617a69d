// Package exporter writes spreadsheet files for the training dashboard.
//
// WorkbookExporter builds the downloadable three-sheet workbook (detail,
// summary, per-organizer statistics) in memory for a filter selection.
// It filters with dataprocessing.ApplyFilter, the same predicate the
// dashboard uses, so the detail sheet always has as many rows as the
// dashboard count for the same selection.
//
// BackupWriter persists the last fetched remote table as a workbook and a
// CSV file. Both files are replaced atomically.
//
// Example usage:
//
//	exp := exporter.NewWorkbookExporter(logger, metrics)
//	data, name, err := exp.Export(ctx, snapshot.Records, filters, time.Now())
//	if errors.Is(err, exporter.ErrNoData) {
//	    // nothing to download
//	}
package exporter
