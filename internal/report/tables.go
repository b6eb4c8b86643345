package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"quantics/internal/backtest"
)

// metricColumns is the fixed column order for comparison and optimization
// tables.
var metricColumns = []string{
	backtest.MetricTotalReturn,
	backtest.MetricAnnualizedReturn,
	backtest.MetricSharpeRatio,
	backtest.MetricMaxDrawdown,
	backtest.MetricWinRate,
	backtest.MetricProfitFactor,
	backtest.MetricTotalTrades,
}

// MetricsTable writes one run's metrics as a two-column table, sorted by
// metric name.
func MetricsTable(w io.Writer, metrics map[string]float64) error {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\n", name, formatMetric(name, metrics[name]))
	}
	return tw.Flush()
}

// CompareTable writes one row per strategy configuration, in the order the
// rows were produced. Failed configurations show their error instead of
// metrics.
func CompareTable(w io.Writer, rows []backtest.CompareRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "STRATEGY\tPARAMS\t%s\tERROR\n", strings.ToUpper(strings.Join(metricColumns, "\t")))
	for _, row := range rows {
		if row.Failed() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				row.Name, formatParams(row.Params), emptyMetricCells(), row.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n",
			row.Name, formatParams(row.Params), metricCells(row.Metrics))
	}
	return tw.Flush()
}

// OptimizeTable writes the ranked grid-search rows, best first, with failed
// combinations trailing.
func OptimizeTable(w io.Writer, report *backtest.OptimizeReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "RANK\tPARAMS\t%s\tERROR\n", strings.ToUpper(report.TargetMetric))
	for _, row := range report.Rows {
		if row.Failed() {
			fmt.Fprintf(tw, "-\t%s\t\t%s\n", formatParams(row.Params), row.Err)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n",
			row.Rank, formatParams(row.Params), formatMetric(report.TargetMetric, row.Score))
	}
	return tw.Flush()
}

func metricCells(metrics map[string]float64) string {
	cells := make([]string, len(metricColumns))
	for i, name := range metricColumns {
		cells[i] = formatMetric(name, metrics[name])
	}
	return strings.Join(cells, "\t")
}

func emptyMetricCells() string {
	return strings.Repeat("\t", len(metricColumns)-1)
}

// formatParams renders a parameter set as "k=v, k=v" with sorted keys so
// table output is stable.
func formatParams(params backtest.Params) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.FormatFloat(params[k], 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

// formatMetric renders ratios as percentages and counts as integers.
func formatMetric(name string, v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	switch name {
	case backtest.MetricTotalReturn, backtest.MetricAnnualizedReturn,
		backtest.MetricMaxDrawdown, backtest.MetricWinRate:
		return fmt.Sprintf("%.2f%%", v*100)
	case backtest.MetricTotalTrades:
		return strconv.Itoa(int(v))
	case backtest.MetricFinalEquity:
		return fmt.Sprintf("%.2f", v)
	default:
		if math.IsInf(v, 1) {
			return "inf"
		}
		return fmt.Sprintf("%.3f", v)
	}
}
