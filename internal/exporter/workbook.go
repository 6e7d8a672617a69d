package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"kalpem/internal/config"
	"kalpem/internal/dataprocessing"
	"kalpem/internal/infrastructure"
	"kalpem/pkg/contracts/domain"
)

// Sheet names of the exported workbook.
const (
	SheetDetail     = "Data Pelatihan"
	SheetSummary    = "Ringkasan"
	SheetOrganizers = "Statistik Penyedia"
)

// Summary metric labels, in sheet order.
const (
	MetricTotalPrograms     = "Total Pelatihan"
	MetricTotalParticipants = "Total Peserta"
	MetricTotalHours        = "Total Jam Lator"
	MetricAvgParticipants   = "Rata-rata Peserta per Pelatihan"
	MetricBusiestMonth      = "Pelatihan Terbanyak di Bulan"
)

var (
	// ErrNoData is returned when there is no record set to export.
	ErrNoData = errors.New("no data to export")

	// ErrExportFailed wraps any failure while building the workbook.
	ErrExportFailed = errors.New("export failed")
)

// detailColumns is the fixed column order of the detail sheet.
var detailColumns = []string{
	domain.ColProgramName,
	domain.ColStartDate,
	domain.ColEndDate,
	domain.ColDuration,
	domain.ColMethod,
	domain.ColOrganizer,
	domain.ColTotalParticipants,
	domain.ColClassCount,
	domain.ColMonthName,
	domain.ColTotalInstructorHours,
	domain.ColYear,
}

// derivedColumns always exist after normalization.
var derivedColumns = map[string]bool{
	domain.ColDuration:  true,
	domain.ColMonthName: true,
	domain.ColYear:      true,
}

// OrganizerStats is one row of the per-organizer sheet.
type OrganizerStats struct {
	Organizer            string
	Programs             int
	TotalParticipants    float64
	TotalInstructorHours float64
}

// Summary holds the five figures of the summary sheet.
type Summary struct {
	TotalPrograms        int
	TotalParticipants    float64
	TotalInstructorHours float64
	AvgParticipants      float64
	BusiestMonth         string
}

// WorkbookExporter builds the downloadable dashboard workbook.
type WorkbookExporter struct {
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewWorkbookExporter creates an exporter. metrics may be nil.
func NewWorkbookExporter(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{
		logger:  logger.With(slog.String("component", "workbook_exporter")),
		metrics: metrics,
	}
}

// Filename returns the download name for an export made at now.
func Filename(now time.Time) string {
	return config.ExportFilePrefix + now.Format(config.ExportTimeLayout) + ".xlsx"
}

// Export applies the dashboard filter to the record set and returns the
// workbook bytes with its file name. It never panics: any failure while
// building the workbook is logged and returned as ErrExportFailed, which
// callers treat as "no file".
func (e *WorkbookExporter) Export(ctx context.Context, rs domain.RecordSet, fs domain.FilterSet, now time.Time) (data []byte, filename string, err error) {
	ctx, span := otel.Tracer(infrastructure.MeterName).Start(ctx, "export.workbook")
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			data, filename = nil, ""
			err = fmt.Errorf("%w: %v", ErrExportFailed, r)
		}

		outcome := "success"
		switch {
		case errors.Is(err, ErrNoData):
			outcome = "no_data"
		case err != nil:
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.logger.ErrorContext(ctx, "workbook export failed", slog.String("error", err.Error()))
		}
		e.metrics.RecordExport(ctx, outcome, time.Since(start))
	}()

	if rs.Len() == 0 {
		return nil, "", ErrNoData
	}

	subset := dataprocessing.ApplyFilter(rs.Records, fs)
	span.SetAttributes(
		attribute.Int("export.records", rs.Len()),
		attribute.Int("export.rows", len(subset)),
	)

	data, err = buildWorkbook(rs, subset)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	filename = Filename(now)
	e.logger.InfoContext(ctx, "workbook exported",
		slog.String("filename", filename),
		slog.Int("rows", len(subset)),
		slog.Int("bytes", len(data)),
	)
	return data, filename, nil
}

func buildWorkbook(rs domain.RecordSet, subset []domain.TrainingRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetDetail); err != nil {
		return nil, fmt.Errorf("failed to name detail sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1A5F7A"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeDetailSheet(f, headerStyle, rs, subset); err != nil {
		return nil, err
	}

	if err := writeSummarySheet(f, headerStyle, rs, Summarize(rs, subset)); err != nil {
		return nil, err
	}

	if rs.HasColumn(domain.ColOrganizer) {
		if err := writeOrganizerSheet(f, headerStyle, OrganizerBreakdown(subset)); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// DetailColumns returns the detail sheet columns available for rs.
func DetailColumns(rs domain.RecordSet) []string {
	cols := make([]string, 0, len(detailColumns))
	for _, c := range detailColumns {
		if derivedColumns[c] || rs.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// DetailRow formats one record for the detail sheet.
func DetailRow(rec domain.TrainingRecord, columns []string) []interface{} {
	row := make([]interface{}, len(columns))
	for i, c := range columns {
		switch c {
		case domain.ColProgramName:
			row[i] = rec.ProgramName
		case domain.ColStartDate:
			row[i] = dataprocessing.FormatDate(rec.StartDate, dataprocessing.ExportDateLayout)
		case domain.ColEndDate:
			row[i] = dataprocessing.FormatDate(rec.EndDate, dataprocessing.ExportDateLayout)
		case domain.ColDuration:
			row[i] = optionalInt(rec.DurationDays)
		case domain.ColMethod:
			row[i] = rec.Method
		case domain.ColOrganizer:
			row[i] = rec.Organizer
		case domain.ColTotalParticipants:
			row[i] = dataprocessing.FormatThousands(rec.TotalParticipants)
		case domain.ColClassCount:
			row[i] = optionalFloat(rec.ClassCount)
		case domain.ColMonthName:
			row[i] = rec.MonthName
		case domain.ColTotalInstructorHours:
			row[i] = dataprocessing.FormatThousands(rec.TotalInstructorHours)
		case domain.ColYear:
			if rec.StartDate != nil {
				row[i] = rec.Year
			} else {
				row[i] = ""
			}
		}
	}
	return row
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optionalFloat(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func writeDetailSheet(f *excelize.File, headerStyle int, rs domain.RecordSet, subset []domain.TrainingRecord) error {
	columns := DetailColumns(rs)

	sw, err := f.NewStreamWriter(SheetDetail)
	if err != nil {
		return fmt.Errorf("failed to open detail sheet: %w", err)
	}
	if err := sw.SetColWidth(1, 1, 45); err != nil {
		return err
	}
	if len(columns) > 1 {
		if err := sw.SetColWidth(2, len(columns), 16); err != nil {
			return err
		}
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("failed to write detail header: %w", err)
	}

	for i, rec := range subset {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, DetailRow(rec, columns)); err != nil {
			return fmt.Errorf("failed to write detail row %d: %w", i+2, err)
		}
	}
	return sw.Flush()
}

// Summarize computes the summary sheet figures for a filtered subset.
// Ties for the busiest month resolve to the alphabetically first name;
// an empty subset yields "-".
func Summarize(rs domain.RecordSet, subset []domain.TrainingRecord) Summary {
	s := Summary{TotalPrograms: len(subset), BusiestMonth: "-"}
	if len(subset) == 0 {
		return s
	}

	participants := make(stats.Float64Data, len(subset))
	hours := make(stats.Float64Data, len(subset))
	months := make(map[string]int)
	for i, rec := range subset {
		participants[i] = rec.TotalParticipants
		hours[i] = rec.TotalInstructorHours
		months[rec.MonthName]++
	}

	if rs.HasColumn(domain.ColTotalParticipants) {
		s.TotalParticipants, _ = stats.Sum(participants)
		mean, _ := stats.Mean(participants)
		s.AvgParticipants, _ = stats.Round(mean, 1)
	}
	if rs.HasColumn(domain.ColTotalInstructorHours) {
		s.TotalInstructorHours, _ = stats.Sum(hours)
	}

	best := 0
	for name, n := range months {
		if n > best || (n == best && name < s.BusiestMonth) {
			best, s.BusiestMonth = n, name
		}
	}
	return s
}

func writeSummarySheet(f *excelize.File, headerStyle int, rs domain.RecordSet, s Summary) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Metrik", "Nilai"},
		{MetricTotalPrograms, s.TotalPrograms},
		{MetricTotalParticipants, s.TotalParticipants},
		{MetricTotalHours, s.TotalInstructorHours},
		{MetricAvgParticipants, s.AvgParticipants},
		{MetricBusiestMonth, s.BusiestMonth},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSummary, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	if err := f.SetCellStyle(SheetSummary, "A1", "B1", headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "A", 36)
}

// OrganizerBreakdown groups a subset by organizer, sorted by name.
// Records without an organizer are not counted.
func OrganizerBreakdown(subset []domain.TrainingRecord) []OrganizerStats {
	byName := make(map[string]*OrganizerStats)
	for _, rec := range subset {
		if rec.Organizer == "" {
			continue
		}
		st, ok := byName[rec.Organizer]
		if !ok {
			st = &OrganizerStats{Organizer: rec.Organizer}
			byName[rec.Organizer] = st
		}
		st.Programs++
		st.TotalParticipants += rec.TotalParticipants
		st.TotalInstructorHours += rec.TotalInstructorHours
	}

	out := make([]OrganizerStats, 0, len(byName))
	for _, st := range byName {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Organizer < out[j].Organizer
	})
	return out
}

func writeOrganizerSheet(f *excelize.File, headerStyle int, breakdown []OrganizerStats) error {
	if _, err := f.NewSheet(SheetOrganizers); err != nil {
		return fmt.Errorf("failed to create organizer sheet: %w", err)
	}

	header := []interface{}{domain.ColOrganizer, "Jumlah Pelatihan", "Total Peserta", "Total Jam Lator"}
	if err := f.SetSheetRow(SheetOrganizers, "A1", &header); err != nil {
		return fmt.Errorf("failed to write organizer header: %w", err)
	}
	if err := f.SetCellStyle(SheetOrganizers, "A1", "D1", headerStyle); err != nil {
		return err
	}

	for i, st := range breakdown {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{st.Organizer, st.Programs, st.TotalParticipants, st.TotalInstructorHours}
		if err := f.SetSheetRow(SheetOrganizers, cell, &row); err != nil {
			return fmt.Errorf("failed to write organizer row: %w", err)
		}
	}
	return f.SetColWidth(SheetOrganizers, "A", "A", 40)
}
