package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quantics/internal/backtest"
	"quantics/internal/domain"
)

func TestFormatParams(t *testing.T) {
	got := formatParams(backtest.Params{"slow_period": 50, "fast_period": 20})
	if got != "fast_period=20, slow_period=50" {
		t.Errorf("formatParams = %q, want sorted keys", got)
	}
	if formatParams(nil) != "-" {
		t.Errorf("formatParams(nil) = %q, want -", formatParams(nil))
	}
}

func TestFormatMetric(t *testing.T) {
	cases := []struct {
		name string
		v    float64
		want string
	}{
		{backtest.MetricTotalReturn, 0.09, "9.00%"},
		{backtest.MetricMaxDrawdown, -0.25, "-25.00%"},
		{backtest.MetricTotalTrades, 4, "4"},
		{backtest.MetricSharpeRatio, 1.2345, "1.234"},
		{backtest.MetricProfitFactor, math.Inf(1), "inf"},
		{backtest.MetricAnnualizedReturn, math.NaN(), "n/a"},
	}
	for _, tc := range cases {
		if got := formatMetric(tc.name, tc.v); got != tc.want {
			t.Errorf("formatMetric(%s, %v) = %q, want %q", tc.name, tc.v, got, tc.want)
		}
	}
}

func TestCompareTable(t *testing.T) {
	rows := []backtest.CompareRow{
		{
			Name:   "buyhold",
			Metrics: map[string]float64{
				backtest.MetricTotalReturn: 0.09,
				backtest.MetricSharpeRatio: 1.5,
			},
		},
		{
			Name:   "rsi",
			Params: backtest.Params{"rsi_period": -1},
			Err:    "bad parameter: rsi_period must be positive",
		},
	}

	var sb strings.Builder
	if err := CompareTable(&sb, rows); err != nil {
		t.Fatalf("CompareTable: %v", err)
	}
	out := sb.String()

	if !strings.Contains(out, "buyhold") || !strings.Contains(out, "9.00%") {
		t.Errorf("table missing healthy row data:\n%s", out)
	}
	if !strings.Contains(out, "bad parameter") {
		t.Errorf("table missing error column for failed row:\n%s", out)
	}
	// Input order is preserved: buyhold before rsi.
	if strings.Index(out, "buyhold") > strings.Index(out, "rsi") {
		t.Errorf("rows reordered:\n%s", out)
	}
}

func TestOptimizeTable(t *testing.T) {
	report := &backtest.OptimizeReport{
		TargetMetric: backtest.MetricSharpeRatio,
		Combinations: 2,
		Rows: []backtest.OptimizeRow{
			{Rank: 1, Params: backtest.Params{"period": 10}, Score: 1.5},
			{Params: backtest.Params{"period": -1}, Err: "bad parameter: period must be positive"},
		},
	}

	var sb strings.Builder
	if err := OptimizeTable(&sb, report); err != nil {
		t.Fatalf("OptimizeTable: %v", err)
	}
	out := sb.String()

	if !strings.Contains(out, "SHARPE_RATIO") {
		t.Errorf("header missing target metric:\n%s", out)
	}
	if !strings.Contains(out, "1.500") {
		t.Errorf("missing ranked score:\n%s", out)
	}
	if !strings.Contains(out, "period=-1") {
		t.Errorf("missing failed combination:\n%s", out)
	}
}

func TestWriteEquityChart(t *testing.T) {
	equity := []domain.EquityPoint{
		{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Equity: 100000},
		{Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Equity: 101000},
	}
	path := filepath.Join(t.TempDir(), "charts", "equity.html")

	if err := WriteEquityChart(path, "AAPL buyhold", equity); err != nil {
		t.Fatalf("WriteEquityChart: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading chart: %v", err)
	}
	if !strings.Contains(string(data), "echarts") {
		t.Error("chart output does not look like an echarts document")
	}

	if err := WriteEquityChart(filepath.Join(t.TempDir(), "x.html"), "empty", nil); err == nil {
		t.Error("empty curve should be rejected")
	}
}
