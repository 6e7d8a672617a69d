package exporter

import (
	"math"
	"strconv"
	"strings"
)

// cellValue returns a number for numeric-looking text so spreadsheets store
// it as a number, and the text itself otherwise.
func cellValue(s string) interface{} {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	// Keep leading zeros ("007") and long identifiers as text
	if len(trimmed) > 1 && trimmed[0] == '0' && trimmed[1] != '.' {
		return s
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || len(trimmed) > 15 || math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	return f
}

// rowValues converts a row of text cells for a spreadsheet writer.
func rowValues(row []string, width int) []interface{} {
	out := make([]interface{}, width)
	for i := 0; i < width; i++ {
		if i < len(row) {
			out[i] = cellValue(row[i])
		} else {
			out[i] = ""
		}
	}
	return out
}

// padRow extends a row to width with empty cells.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
