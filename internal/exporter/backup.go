package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"kalpem/internal/infrastructure"
	"kalpem/pkg/contracts/domain"
)

const backupSheet = "Sheet1"

// BackupWriter persists the last successfully fetched remote table to a
// spreadsheet copy and a delimited copy. Those files are only read back as
// fallback sources when the remote fetch fails.
type BackupWriter struct {
	xlsxPath string
	csvPath  string
	logger   *slog.Logger
	metrics  *infrastructure.BusinessMetrics
}

// NewBackupWriter creates a writer for the two backup locations.
func NewBackupWriter(xlsxPath, csvPath string, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *BackupWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackupWriter{
		xlsxPath: xlsxPath,
		csvPath:  csvPath,
		logger:   logger.With(slog.String("component", "backup_writer")),
		metrics:  metrics,
	}
}

// Write overwrites both backups with the table. Both writes are attempted
// even when the first fails; the returned error joins the failures.
func (b *BackupWriter) Write(ctx context.Context, table domain.RawTable) error {
	var errs []error

	if err := WriteWorkbookBackup(b.xlsxPath, table); err != nil {
		b.metrics.RecordBackupWriteError(ctx, "xlsx")
		errs = append(errs, err)
	}

	rows := make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		rows[i] = padRow(row, len(table.Headers))
	}
	if err := WriteCSV(b.csvPath, WriteOptions{Headers: table.Headers, Records: rows, BOMPrefix: true}); err != nil {
		b.metrics.RecordBackupWriteError(ctx, "csv")
		errs = append(errs, fmt.Errorf("failed to write csv backup %s: %w", b.csvPath, err))
	}

	if err := errors.Join(errs...); err != nil {
		b.logger.WarnContext(ctx, "backup write failed", slog.String("error", err.Error()))
		return err
	}

	b.logger.DebugContext(ctx, "backups written",
		slog.String("xlsx", b.xlsxPath),
		slog.String("csv", b.csvPath),
		slog.Int("rows", table.Len()),
	)
	return nil
}

// WriteWorkbookBackup writes the table to a single-sheet workbook at path.
func WriteWorkbookBackup(path string, table domain.RawTable) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(backupSheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	width := len(table.Headers)
	header := make([]interface{}, width)
	for i, h := range table.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, rowValues(row, width)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush workbook: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write workbook backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close workbook backup: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move workbook backup into place: %w", err)
	}
	return nil
}
