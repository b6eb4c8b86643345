package backtest

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"quantics/internal/domain"
)

// Grid is an ordered set of parameter names, each with a list of candidate
// values. Combination order is fixed by insertion order of the names: the
// first added parameter varies slowest, the last varies fastest.
type Grid struct {
	names      []string
	candidates map[string][]float64
}

// NewGrid returns an empty grid.
func NewGrid() *Grid {
	return &Grid{candidates: make(map[string][]float64)}
}

// Add appends a parameter and its candidate values to the grid. Adding the
// same name twice replaces its values without changing its position.
func (g *Grid) Add(name string, values []float64) *Grid {
	if _, ok := g.candidates[name]; !ok {
		g.names = append(g.names, name)
	}
	g.candidates[name] = values
	return g
}

// Size is the number of combinations the grid enumerates.
func (g *Grid) Size() int {
	if g == nil || len(g.names) == 0 {
		return 0
	}
	size := 1
	for _, name := range g.names {
		size *= len(g.candidates[name])
	}
	return size
}

// Combinations materializes every parameter combination in enumeration
// order. The order is deterministic for a given grid.
func (g *Grid) Combinations() []Params {
	size := g.Size()
	if size == 0 {
		return nil
	}

	out := make([]Params, 0, size)
	idx := make([]int, len(g.names))
	for {
		p := make(Params, len(g.names))
		for i, name := range g.names {
			p[name] = g.candidates[name][idx[i]]
		}
		out = append(out, p)

		// Advance the odometer, last parameter fastest.
		i := len(idx) - 1
		for i >= 0 {
			idx[i]++
			if idx[i] < len(g.candidates[g.names[i]]) {
				break
			}
			idx[i] = 0
			i--
		}
		if i < 0 {
			return out
		}
	}
}

// validate rejects empty grids and parameters with no candidate values.
func (g *Grid) validate() error {
	if g == nil || len(g.names) == 0 {
		return ParameterErrorf("empty parameter grid")
	}
	for _, name := range g.names {
		if len(g.candidates[name]) == 0 {
			return ParameterErrorf("parameter %q has no candidate values", name)
		}
	}
	return nil
}

// OptimizeRow is the outcome of one parameter combination. Index is the
// combination's position in grid enumeration order; Rank is 1-based among
// successful rows and 0 for failed ones.
type OptimizeRow struct {
	Index   int
	Params  Params
	Metrics map[string]float64
	Score   float64
	Rank    int
	Err     string
}

// Failed reports whether this combination's run failed.
func (r OptimizeRow) Failed() bool {
	return r.Err != ""
}

// OptimizeReport holds a full grid-search sweep. Rows are sorted best first;
// failed combinations come after all successful ones.
type OptimizeReport struct {
	Rows         []OptimizeRow
	Best         *OptimizeRow
	TargetMetric string
	Combinations int
}

// Optimize runs the strategy once per grid combination and ranks the results
// by targetMetric, descending. Ties, and scores that are NaN, break toward
// the earlier enumeration index, so a given grid always produces the same
// report. Combinations whose run fails are flagged in their row rather than
// aborting the sweep.
func (e *Engine) Optimize(ctx context.Context, factory StrategyFactory, bars []domain.Bar, grid *Grid, targetMetric string, initialCash float64, maxWorkers int) (*OptimizeReport, error) {
	if err := grid.validate(); err != nil {
		return nil, err
	}
	if targetMetric == "" {
		return nil, ParameterErrorf("empty target metric")
	}

	combos := grid.Combinations()
	rows := make([]OptimizeRow, len(combos))

	g := new(errgroup.Group)
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	g.SetLimit(maxWorkers)

	for i := range combos {
		rows[i] = OptimizeRow{Index: i, Params: combos[i], Score: math.NaN()}

		if err := ctx.Err(); err != nil {
			rows[i].Err = err.Error()
			continue
		}

		g.Go(func() error {
			metrics, err := e.runConfig(factory, combos[i], bars, initialCash)
			if err != nil {
				rows[i].Err = err.Error()
				return nil
			}
			rows[i].Metrics = metrics
			rows[i].Score = metrics[targetMetric]
			return nil
		})
	}
	g.Wait()

	// Successful rows rank by score descending, enumeration index breaking
	// ties; failed rows trail in enumeration order.
	sort.SliceStable(rows, func(a, b int) bool {
		ra, rb := rows[a], rows[b]
		if ra.Failed() != rb.Failed() {
			return !ra.Failed()
		}
		if ra.Failed() {
			return ra.Index < rb.Index
		}
		aNaN, bNaN := math.IsNaN(ra.Score), math.IsNaN(rb.Score)
		if aNaN != bNaN {
			return !aNaN
		}
		if !aNaN && ra.Score != rb.Score {
			return ra.Score > rb.Score
		}
		return ra.Index < rb.Index
	})
	for i := range rows {
		if rows[i].Failed() {
			break
		}
		rows[i].Rank = i + 1
	}

	report := &OptimizeReport{
		Rows:         rows,
		TargetMetric: targetMetric,
		Combinations: len(combos),
	}
	if len(rows) > 0 && !rows[0].Failed() {
		report.Best = &rows[0]
	}
	return report, nil
}
