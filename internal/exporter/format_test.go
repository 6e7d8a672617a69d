package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected interface{}
	}{
		{name: "integer", input: "120", expected: 120.0},
		{name: "decimal", input: "12.5", expected: 12.5},
		{name: "zero", input: "0", expected: 0.0},
		{name: "fraction below one", input: "0.75", expected: 0.75},
		{name: "spreadsheet serial", input: "45292", expected: 45292.0},
		{name: "text", input: "PJJ", expected: "PJJ"},
		{name: "localized date", input: "17 Agustus 2024", expected: "17 Agustus 2024"},
		{name: "leading zero kept as text", input: "007", expected: "007"},
		{name: "long identifier kept as text", input: "1234567890123456", expected: "1234567890123456"},
		{name: "nan kept as text", input: "NaN", expected: "NaN"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cellValue(tt.input))
		})
	}
}

func TestRowValuesPadsShortRows(t *testing.T) {
	got := rowValues([]string{"PJJ", "25"}, 4)
	assert.Equal(t, []interface{}{"PJJ", 25.0, "", ""}, got)
}

func TestPadRow(t *testing.T) {
	assert.Equal(t, []string{"a", "", ""}, padRow([]string{"a"}, 3))
	assert.Equal(t, []string{"a", "b"}, padRow([]string{"a", "b"}, 1))
}
