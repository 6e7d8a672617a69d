// Package acquisition obtains the raw training calendar table.
//
// An Acquirer tries its primary source (the configured download link or a
// Google Sheets range) and, when that fails, falls back in strict order to
// the workbook backup, the CSV backup and the bundled default file. A
// successful primary fetch is handed to a BackupWriter before it is
// returned. Acquire never fails: the Result says which source produced
// the table and whether the remote was reached.
package acquisition
