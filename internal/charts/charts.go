package charts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kalpem/internal/infrastructure"
	"kalpem/pkg/contracts/domain"
)

// Chart names accepted by Render.
const (
	KindMonth      = "month"
	KindMethod     = "method"
	KindOrganizer  = "organizer"
	KindEvaluation = "evaluation"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// NoDataLabel is drawn when a chart has nothing to show.
const NoDataLabel = "Tidak ada data"

const (
	defaultWidth  = 720
	defaultHeight = 350
	maxLabelRunes = 22
)

// ErrUnknownChart is returned for a chart name Render does not know.
var ErrUnknownChart = errors.New("unknown chart")

var (
	// Continuous scale endpoints for count-coloured bars.
	scaleLow  = drawing.ColorFromHex("9ecae1")
	scaleHigh = drawing.ColorFromHex("1a5f7a")

	// Discrete palette for category charts.
	palette = []drawing.Color{
		drawing.ColorFromHex("1a5f7a"),
		drawing.ColorFromHex("57c5b6"),
		drawing.ColorFromHex("159895"),
		drawing.ColorFromHex("9b59b6"),
		drawing.ColorFromHex("f39c12"),
		drawing.ColorFromHex("e74c3c"),
	}

	placeholderColor = drawing.ColorFromHex("bdc3c7")
)

type theme struct {
	text drawing.Color
	grid drawing.Color
}

func themeFor(name string) theme {
	if name == ThemeDark {
		return theme{text: drawing.ColorFromHex("ecf0f1"), grid: drawing.ColorFromHex("4a5568")}
	}
	return theme{text: drawing.ColorFromHex("2c3e50"), grid: drawing.ColorFromHex("dfe6e9")}
}

// Renderer draws the dashboard charts as PNG images.
type Renderer struct {
	width  int
	height int
	logger *slog.Logger
	tracer trace.Tracer
}

// NewRenderer creates a renderer with the dashboard's chart size.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		width:  defaultWidth,
		height: defaultHeight,
		logger: logger.With(slog.String("component", "charts")),
		tracer: otel.Tracer(infrastructure.MeterName),
	}
}

// Render draws the named chart for an aggregated result. An empty result
// renders an empty chart rather than an error.
func (r *Renderer) Render(ctx context.Context, kind, themeName string, result domain.FilteredResult) ([]byte, error) {
	_, span := r.tracer.Start(ctx, "charts.render",
		trace.WithAttributes(attribute.String("chart", kind)))
	defer span.End()

	var (
		buf bytes.Buffer
		err error
	)
	th := themeFor(themeName)

	switch kind {
	case KindMonth:
		err = r.bars(result.ByMonth, th, false, scaledColors).Render(chart.PNG, &buf)
	case KindMethod:
		err = r.donut(result.ByMethod, th).Render(chart.PNG, &buf)
	case KindOrganizer:
		err = r.bars(result.ByOrganizerTop10, th, true, scaledColors).Render(chart.PNG, &buf)
	case KindEvaluation:
		err = r.bars(result.ByEvaluationLevel, th, false, paletteColors).Render(chart.PNG, &buf)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownChart, kind)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, ErrUnknownChart) {
			r.logger.ErrorContext(ctx, "chart render failed",
				slog.String("chart", kind),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

type colorFunc func(i int, value, max float64) drawing.Color

func scaledColors(_ int, value, max float64) drawing.Color {
	if max <= 0 {
		return scaleLow
	}
	return blend(scaleLow, scaleHigh, value/max)
}

func paletteColors(i int, _, _ float64) drawing.Color {
	return palette[i%len(palette)]
}

func (r *Renderer) bars(groups []domain.GroupCount, th theme, rotate bool, colors colorFunc) chart.BarChart {
	maxCount := 0.0
	for _, g := range groups {
		maxCount = math.Max(maxCount, float64(g.Count))
	}

	values := make([]chart.Value, 0, len(groups))
	for i, g := range groups {
		values = append(values, chart.Value{
			Label: truncate(g.Label, maxLabelRunes),
			Value: float64(g.Count),
			Style: chart.Style{
				FillColor:   colors(i, float64(g.Count), maxCount),
				StrokeColor: colors(i, float64(g.Count), maxCount),
				StrokeWidth: 1,
			},
		})
	}
	if len(values) == 0 {
		values = append(values, chart.Value{
			Label: NoDataLabel,
			Value: 0,
			Style: chart.Style{FillColor: placeholderColor, StrokeColor: placeholderColor},
		})
	}

	xStyle := chart.Style{FontColor: th.text, FontSize: 9, StrokeColor: th.grid}
	bottom := 20
	if rotate {
		xStyle.TextRotationDegrees = 45
		bottom = 110
	}

	barWidth := (r.width - 80) / (len(values) * 2)
	if barWidth > 60 {
		barWidth = 60
	}

	return chart.BarChart{
		Width:      r.width,
		Height:     r.height,
		BarWidth:   barWidth,
		BarSpacing: barWidth / 2,
		Background: chart.Style{
			FillColor: drawing.ColorTransparent,
			Padding:   chart.Box{Top: 20, Left: 16, Right: 16, Bottom: bottom},
		},
		Canvas: chart.Style{FillColor: drawing.ColorTransparent},
		XAxis:  xStyle,
		YAxis: chart.YAxis{
			Style:          chart.Style{FontColor: th.text, FontSize: 9, StrokeColor: th.grid},
			Range:          &chart.ContinuousRange{Min: 0, Max: yMax(maxCount)},
			ValueFormatter: countFormatter,
		},
		Bars: values,
	}
}

func (r *Renderer) donut(groups []domain.GroupCount, th theme) chart.DonutChart {
	values := make([]chart.Value, 0, len(groups))
	for i, g := range groups {
		if g.Count <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", truncate(g.Label, maxLabelRunes), g.Count),
			Value: float64(g.Count),
			Style: chart.Style{FillColor: paletteColors(i, 0, 0), FontColor: drawing.ColorWhite},
		})
	}
	if len(values) == 0 {
		values = append(values, chart.Value{
			Label: NoDataLabel,
			Value: 1,
			Style: chart.Style{FillColor: placeholderColor, FontColor: th.text},
		})
	}

	return chart.DonutChart{
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{FillColor: drawing.ColorTransparent},
		Canvas:     chart.Style{FillColor: drawing.ColorTransparent},
		SliceStyle: chart.Style{FontSize: 10, StrokeColor: drawing.ColorWhite, StrokeWidth: 2},
		Values:     values,
	}
}

// yMax keeps the axis range non-zero and leaves headroom above the top bar.
func yMax(max float64) float64 {
	if max < 1 {
		return 1
	}
	return math.Ceil(max * 1.1)
}

func countFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatInt(int64(math.Round(f)), 10)
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func blend(from, to drawing.Color, t float64) drawing.Color {
	t = math.Max(0, math.Min(1, t))
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	return drawing.Color{R: mix(from.R, to.R), G: mix(from.G, to.G), B: mix(from.B, to.B), A: 255}
}
