package dashboard

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNoChartData = errors.New("chart has no data")

const (
	chartWidth  = 640
	chartHeight = 360
)

func toValues(bars []ChartBar) []chart.Value {
	values := make([]chart.Value, 0, len(bars))
	for _, b := range bars {
		col := drawing.ColorFromHex(strings.TrimPrefix(b.Color, "#"))
		values = append(values, chart.Value{
			Label: b.Label,
			Value: b.Value,
			Style: chart.Style{FillColor: col, StrokeColor: col},
		})
	}
	return values
}

func hasData(bars []ChartBar) bool {
	for _, b := range bars {
		if b.Value > 0 {
			return true
		}
	}
	return false
}

// RenderBarChart writes bars as an SVG bar chart.
func RenderBarChart(w io.Writer, title string, bars []ChartBar) error {
	if !hasData(bars) {
		return ErrNoChartData
	}
	ch := chart.BarChart{
		Title:      title,
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   80,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Bars:       toValues(bars),
	}
	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// RenderPieChart writes bars as an SVG pie chart.
func RenderPieChart(w io.Writer, title string, bars []ChartBar) error {
	if !hasData(bars) {
		return ErrNoChartData
	}
	ch := chart.PieChart{
		Title:  title,
		Width:  chartHeight,
		Height: chartHeight,
		Values: toValues(bars),
	}
	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}
