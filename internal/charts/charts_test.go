package charts

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"kalpem/pkg/contracts/domain"
)

func sampleResult() domain.FilteredResult {
	months := make([]domain.GroupCount, 12)
	for i, name := range domain.MonthNames {
		months[i] = domain.GroupCount{Label: name, Count: i % 4}
	}
	return domain.FilteredResult{
		Count:    18,
		ByMonth:  months,
		ByMethod: []domain.GroupCount{{Label: "PJJ", Count: 10}, {Label: "E-Learning", Count: 6}, {Label: "Klasikal", Count: 2}},
		ByOrganizerTop10: []domain.GroupCount{
			{Label: "Pusdiklat Keuangan Umum", Count: 7},
			{Label: "Balai Diklat Keuangan Yogyakarta dan Sekitarnya", Count: 5},
			{Label: "Pusdiklat Pajak", Count: 6},
		},
		ByEvaluationLevel: []domain.GroupCount{{Label: "Level 1", Count: 12}, {Label: "Level 3", Count: 6}},
	}
}

func TestRender(t *testing.T) {
	r := NewRenderer(nil)

	tests := []struct {
		name   string
		kind   string
		theme  string
		result domain.FilteredResult
	}{
		{name: "month", kind: KindMonth, result: sampleResult()},
		{name: "method", kind: KindMethod, result: sampleResult()},
		{name: "organizer dark", kind: KindOrganizer, theme: ThemeDark, result: sampleResult()},
		{name: "evaluation", kind: KindEvaluation, result: sampleResult()},
		{name: "empty month", kind: KindMonth, result: domain.FilteredResult{ByMonth: []domain.GroupCount{}}},
		{name: "all zero months", kind: KindMonth, result: domain.FilteredResult{ByMonth: make([]domain.GroupCount, 12)}},
		{name: "empty method", kind: KindMethod, result: domain.FilteredResult{}},
		{name: "empty organizer", kind: KindOrganizer, result: domain.FilteredResult{}},
		{name: "no evaluation column", kind: KindEvaluation, result: domain.FilteredResult{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := r.Render(context.Background(), tt.kind, tt.theme, tt.result)
			require.NoError(t, err)

			cfg, err := png.DecodeConfig(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, defaultWidth, cfg.Width)
			assert.Equal(t, defaultHeight, cfg.Height)
		})
	}
}

func TestRenderUnknownChart(t *testing.T) {
	_, err := NewRenderer(nil).Render(context.Background(), "scatter", ThemeLight, sampleResult())
	assert.ErrorIs(t, err, ErrUnknownChart)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "PJJ", n: 5, want: "PJJ"},
		{in: "Pusdiklat", n: 9, want: "Pusdiklat"},
		{in: "Pusdiklat Pajak", n: 6, want: "Pusdi…"},
		{in: "Balai Diklat Keuangan", n: 2, want: "B…"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.n), tt.in)
	}
}

func TestYMax(t *testing.T) {
	assert.Equal(t, 1.0, yMax(0))
	assert.Equal(t, 1.0, yMax(0.4))
	assert.Equal(t, 11.0, yMax(10))
	assert.Equal(t, 4.0, yMax(3))
}

func TestBlend(t *testing.T) {
	from := drawing.Color{R: 0, G: 0, B: 0, A: 255}
	to := drawing.Color{R: 200, G: 100, B: 50, A: 255}

	assert.Equal(t, from, blend(from, to, 0))
	assert.Equal(t, to, blend(from, to, 1))
	assert.Equal(t, to, blend(from, to, 3))
	assert.Equal(t, drawing.Color{R: 100, G: 50, B: 25, A: 255}, blend(from, to, 0.5))
}

func TestScaledColors(t *testing.T) {
	assert.Equal(t, scaleLow, scaledColors(0, 5, 0))
	assert.Equal(t, scaleHigh, scaledColors(0, 8, 8))
	assert.Equal(t, palette[1], paletteColors(len(palette)+1, 0, 0))
}

func TestCountFormatter(t *testing.T) {
	assert.Equal(t, "3", countFormatter(2.6))
	assert.Equal(t, "0", countFormatter(0.0))
	assert.Equal(t, "x", countFormatter("x"))
}
