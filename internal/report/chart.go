// Package report renders backtest results: an HTML equity-curve chart and
// plain-text tables for terminal output.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"quantics/internal/domain"
)

// WriteEquityChart renders the equity curve as a self-contained HTML line
// chart at path, creating parent directories as needed.
func WriteEquityChart(path, title string, equity []domain.EquityPoint) error {
	if len(equity) == 0 {
		return fmt.Errorf("empty equity curve")
	}

	xAxis := make([]string, len(equity))
	data := make([]opts.LineData, len(equity))
	for i, p := range equity {
		xAxis[i] = p.Timestamp.Format("2006-01-02")
		data[i] = opts.LineData{Value: p.Equity}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Left: "left"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Equity", Scale: opts.Bool(true)}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("Equity", data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}),
	)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating chart dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	defer f.Close()

	if err := line.Render(f); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}
