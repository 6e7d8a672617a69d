package dataprocessing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatThousands(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "0"},
		{999, "999"},
		{1234, "1,234"},
		{1234567.89, "1,234,567"},
		{-4500, "-4,500"},
		{math.NaN(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatThousands(tt.input))
		})
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, time.August, 17, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "17 Aug 2024", FormatDate(&d, PreviewDateLayout))
	assert.Equal(t, "17/08/2024", FormatDate(&d, ExportDateLayout))
	assert.Empty(t, FormatDate(nil, ExportDateLayout))
}

func TestFormatNumbers(t *testing.T) {
	v := 3.0
	half := 2.5
	days := 5

	assert.Equal(t, "3", FormatOptionalNumber(&v))
	assert.Equal(t, "2.5", FormatOptionalNumber(&half))
	assert.Empty(t, FormatOptionalNumber(nil))
	assert.Equal(t, "5", FormatOptionalInt(&days))
	assert.Empty(t, FormatOptionalInt(nil))
}
