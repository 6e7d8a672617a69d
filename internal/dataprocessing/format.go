package dataprocessing

import (
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Display layouts for dates.
const (
	PreviewDateLayout = "02 Jan 2006"
	ExportDateLayout  = "02/01/2006"
)

var printer = message.NewPrinter(language.English)

// FormatThousands truncates v to an integer and groups thousands with
// commas: 1234567.8 becomes "1,234,567".
func FormatThousands(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return printer.Sprintf("%d", int64(v))
}

// FormatDate renders a date with the given layout, or "" when missing.
func FormatDate(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}

// FormatNumber renders a float without a trailing ".0" for whole values.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatOptionalNumber renders an optional number, or "" when missing.
func FormatOptionalNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatNumber(*v)
}

// FormatOptionalInt renders an optional integer, or "" when missing.
func FormatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
