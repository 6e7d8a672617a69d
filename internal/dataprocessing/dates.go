package dataprocessing

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
)

// localizedLayout is the strict day/month/year pattern applied once the
// localized month name has been replaced by its canonical English name.
const localizedLayout = "2 January 2006"

// Numeric cells are treated as spreadsheet date serials only inside this
// range (day 10000 is in 1927, day 99999 in 2173). Below it only a bare
// four-digit year is accepted.
const (
	minExcelSerial = 10000
	maxExcelSerial = 99999
)

// monthTable maps lower-cased localized month names to canonical months.
var monthTable = map[string]time.Month{
	"januari":   time.January,
	"februari":  time.February,
	"maret":     time.March,
	"april":     time.April,
	"mei":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"agustus":   time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"desember":  time.December,
}

// missingValues are cell texts that stand for an absent value in exported
// spreadsheets and delimited backups.
var missingValues = map[string]struct{}{
	"":     {},
	"nan":  {},
	"nat":  {},
	"none": {},
	"null": {},
}

// isMissing reports whether a cell carries no value.
func isMissing(s string) bool {
	_, ok := missingValues[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ParseLocalizedDate converts date text such as "17 Agustus 1945" to a
// calendar date at midnight UTC. Text whose second word is not a localized
// month name, or that fails the strict layout, goes through a permissive
// generic parser; spreadsheet serial numbers are accepted as well.
// Month names match regardless of case.
// Unparsable input yields nil, never an error.
func ParseLocalizedDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return nil
	}

	if parts := strings.Fields(s); len(parts) >= 3 {
		if month, ok := monthTable[strings.ToLower(parts[1])]; ok {
			canonical := parts[0] + " " + month.String() + " " + parts[2]
			if t, err := time.Parse(localizedLayout, canonical); err == nil {
				return dateOnly(t)
			}
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < minExcelSerial {
			return bareYear(serial)
		}
		if serial > maxExcelSerial {
			return nil
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		return dateOnly(t)
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil
	}
	return dateOnly(t)
}

// bareYear reads a four-digit whole number as the first day of that year.
func bareYear(v float64) *time.Time {
	if v < 1000 || v != float64(int(v)) {
		return nil
	}
	d := time.Date(int(v), time.January, 1, 0, 0, 0, 0, time.UTC)
	return &d
}

func dateOnly(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// InclusiveDays returns end - start in whole days plus one, or nil when
// either date is missing.
func InclusiveDays(start, end *time.Time) *int {
	if start == nil || end == nil {
		return nil
	}
	days := int(end.Sub(*start).Hours()/24) + 1
	return &days
}
