// Package chart renders aggregate results as PNG images.
package chart

import (
	"fmt"
	"io"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	"salesdash/internal/core"
)

// Options controls the rendered image.
type Options struct {
	Title  string
	Width  int
	Height int
}

func DefaultOptions(month int) Options {
	return Options{
		Title:  fmt.Sprintf("Price range distribution - month %d", month),
		Width:  1000,
		Height: 480,
	}
}

// RenderHistogram draws one bar per histogram entry as a PNG.
func RenderHistogram(w io.Writer, entries []core.HistogramEntry, opts Options) error {
	if len(entries) == 0 {
		return fmt.Errorf("render histogram: no buckets")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		def := DefaultOptions(0)
		opts.Width, opts.Height = def.Width, def.Height
	}

	bars := make([]chart.Value, 0, len(entries))
	var peak int64
	for _, e := range entries {
		bars = append(bars, chart.Value{Label: e.Range, Value: float64(e.Count)})
		peak = max(peak, e.Count)
	}

	barChart := chart.BarChart{
		Title: opts.Title,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:      opts.Width,
		Height:     opts.Height,
		BarWidth:   60,
		BarSpacing: 20,
		Bars:       bars,
	}
	// An explicit range keeps empty or flat months renderable.
	barChart.YAxis.Range = &chart.ContinuousRange{Min: 0, Max: float64(max(peak, 1))}
	barChart.YAxis.ValueFormatter = func(v interface{}) string {
		if vf, isFloat := v.(float64); isFloat {
			return strconv.FormatFloat(vf, 'f', 0, 64)
		}
		return ""
	}

	if err := barChart.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render histogram: %w", err)
	}
	return nil
}
