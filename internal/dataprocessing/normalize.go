package dataprocessing

import (
	"strconv"
	"strings"

	"kalpem/pkg/contracts/domain"
)

// indexColumns are auto-generated row-number columns left behind by
// spreadsheet exports.
var indexColumns = map[string]struct{}{
	"No.":          {},
	"Unnamed: 0":   {},
	"Unnamed: 0.1": {},
}

// columnIndices locates the known source columns; -1 marks an absent one.
type columnIndices struct {
	programName     int
	startDate       int
	endDate         int
	method          int
	organizer       int
	participants    int
	instructorHours int
	classCount      int
	evaluationLevel int
}

func findColumnIndices(headers []string) columnIndices {
	cols := columnIndices{-1, -1, -1, -1, -1, -1, -1, -1, -1}
	for i, h := range headers {
		switch h {
		case domain.ColProgramName:
			cols.programName = i
		case domain.ColStartDate:
			cols.startDate = i
		case domain.ColEndDate:
			cols.endDate = i
		case domain.ColMethod:
			cols.method = i
		case domain.ColOrganizer:
			cols.organizer = i
		case domain.ColTotalParticipants:
			cols.participants = i
		case domain.ColTotalInstructorHours:
			cols.instructorHours = i
		case domain.ColClassCount:
			cols.classCount = i
		case domain.ColEvaluationLevel:
			cols.evaluationLevel = i
		}
	}
	return cols
}

// Normalize turns a raw table into training records. Rows empty across
// every column are dropped, index columns are discarded, dates are parsed
// with ParseLocalizedDate and calendar fields are derived from the start
// date. Participant and instructor-hour counts that are missing or not
// numeric become 0. Normalize never fails; bad cells degrade to nil or 0.
func Normalize(raw domain.RawTable) domain.RecordSet {
	if raw.IsEmpty() {
		return domain.RecordSet{}
	}

	columns := make([]string, 0, len(raw.Headers))
	for _, h := range raw.Headers {
		if _, drop := indexColumns[h]; !drop {
			columns = append(columns, h)
		}
	}

	cols := findColumnIndices(raw.Headers)
	records := make([]domain.TrainingRecord, 0, len(raw.Rows))

	for _, row := range raw.Rows {
		if isEmptyRow(row) {
			continue
		}
		records = append(records, normalizeRow(row, cols))
	}

	return domain.RecordSet{
		Records: records,
		Columns: columns,
	}
}

func normalizeRow(row []string, cols columnIndices) domain.TrainingRecord {
	rec := domain.TrainingRecord{
		ProgramName:          textAt(row, cols.programName),
		Method:               textAt(row, cols.method),
		Organizer:            textAt(row, cols.organizer),
		EvaluationLevel:      textAt(row, cols.evaluationLevel),
		TotalParticipants:    CoerceNumber(cellAt(row, cols.participants)),
		TotalInstructorHours: CoerceNumber(cellAt(row, cols.instructorHours)),
		ClassCount:           optionalNumber(cellAt(row, cols.classCount)),
		StartDate:            ParseLocalizedDate(cellAt(row, cols.startDate)),
		EndDate:              ParseLocalizedDate(cellAt(row, cols.endDate)),
	}

	rec.MonthName = domain.UnknownMonth
	if rec.StartDate != nil {
		rec.MonthNumber = int(rec.StartDate.Month())
		rec.MonthName = domain.MonthName(rec.MonthNumber)
		rec.Year = rec.StartDate.Year()
	}
	rec.DurationDays = InclusiveDays(rec.StartDate, rec.EndDate)

	return rec
}

// CoerceNumber parses a numeric cell; anything else counts as 0.
func CoerceNumber(s string) float64 {
	if v := optionalNumber(s); v != nil {
		return *v
	}
	return 0
}

func optionalNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// textAt returns the trimmed cell, with missing markers as "".
func textAt(row []string, i int) string {
	s := strings.TrimSpace(cellAt(row, i))
	if isMissing(s) {
		return ""
	}
	return s
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if !isMissing(cell) {
			return false
		}
	}
	return true
}
