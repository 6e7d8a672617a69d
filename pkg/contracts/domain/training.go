package domain

import (
	"time"
)

// Source column names as they appear in the training calendar spreadsheet.
const (
	ColProgramName          = "NamaProgramPembelajaran"
	ColStartDate            = "Mulai"
	ColEndDate              = "Akhir"
	ColMethod               = "Metode"
	ColOrganizer            = "Penyelenggara"
	ColTotalParticipants    = "TotalPeserta"
	ColTotalInstructorHours = "TotalJamlator"
	ColClassCount           = "Jumlahkelas"
	ColEvaluationLevel      = "LevelEvaluasi"
)

// Derived column names added by the normalizer.
const (
	ColMonthNumber = "Bulan_Num"
	ColMonthName   = "Bulan_Indo"
	ColYear        = "Tahun"
	ColDuration    = "Durasi"
)

// Method categories counted separately on the dashboard.
const (
	MethodELearning = "E-Learning"
	MethodPJJ       = "PJJ"
)

// UnknownMonth labels records whose start date could not be parsed.
const UnknownMonth = "Tidak Diketahui"

// MonthNames is the localized month table in calendar order.
var MonthNames = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthName returns the localized name for month 1-12, or UnknownMonth.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return UnknownMonth
	}
	return MonthNames[month-1]
}

// RawTable is a spreadsheet as read from any source: a header row and
// string cells. Rows may be shorter than Headers.
type RawTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of data rows.
func (t RawTable) Len() int {
	return len(t.Rows)
}

// IsEmpty reports whether the table has no header and no rows.
func (t RawTable) IsEmpty() bool {
	return len(t.Headers) == 0 && len(t.Rows) == 0
}

// TrainingRecord is one normalized row of the training calendar.
// Derived fields are computed once by the normalizer and never mutated.
type TrainingRecord struct {
	ProgramName          string     `json:"program_name"`
	StartDate            *time.Time `json:"start_date,omitempty"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	Method               string     `json:"method"`
	Organizer            string     `json:"organizer"`
	TotalParticipants    float64    `json:"total_participants"`
	TotalInstructorHours float64    `json:"total_instructor_hours"`
	ClassCount           *float64   `json:"class_count,omitempty"`
	EvaluationLevel      string     `json:"evaluation_level,omitempty"`

	MonthNumber  int    `json:"month_number,omitempty"`
	MonthName    string `json:"month_name"`
	Year         int    `json:"year,omitempty"`
	DurationDays *int   `json:"duration_days,omitempty"`
}

// RecordSet is the complete collection of training rows at a point in time.
// Columns lists the source columns that were present after index columns
// were dropped; it decides which optional aggregates and table columns apply.
type RecordSet struct {
	Records []TrainingRecord `json:"records"`
	Columns []string         `json:"columns"`
}

// Len returns the number of records.
func (rs RecordSet) Len() int {
	return len(rs.Records)
}

// HasColumn reports whether the source carried the named column.
func (rs RecordSet) HasColumn(name string) bool {
	for _, c := range rs.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// FilterSet holds the three optional filter dimensions. An empty slice
// leaves that dimension unconstrained.
type FilterSet struct {
	Months     []string `json:"months,omitempty"`
	Organizers []string `json:"organizers,omitempty"`
	Methods    []string `json:"methods,omitempty"`
}

// IsEmpty reports whether no dimension is constrained.
func (f FilterSet) IsEmpty() bool {
	return len(f.Months) == 0 && len(f.Organizers) == 0 && len(f.Methods) == 0
}
