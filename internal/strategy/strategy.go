// Package strategy provides the built-in trading strategies and a Registry
// for looking them up by name. Every strategy is exposed as a
// backtest.StrategyFactory so the engine always gets a fresh instance with
// its own indicator state.
package strategy

import (
	"sort"

	"quantics/internal/backtest"
)

// Registry holds a named collection of strategy factories.
type Registry struct {
	factories map[string]backtest.StrategyFactory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]backtest.StrategyFactory),
	}
}

// Register adds a factory under the given name, replacing any previous entry.
func (r *Registry) Register(name string, factory backtest.StrategyFactory) {
	r.factories[name] = factory
}

// Get retrieves a factory by name. The second return value indicates whether
// the name is registered.
func (r *Registry) Get(name string) (backtest.StrategyFactory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a Registry with every built-in strategy registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("buyhold", NewBuyHold)
	r.Register("macross", NewMACross)
	r.Register("rsi", NewRSI)
	r.Register("bollinger", NewBollinger)
	r.Register("macd", NewMACD)
	return r
}

// intParam reads params[name] as a positive integer, falling back to def
// when absent. Non-integral or non-positive values are rejected.
func intParam(params backtest.Params, name string, def int) (int, error) {
	v, ok := params[name]
	if !ok {
		return def, nil
	}
	n := int(v)
	if float64(n) != v {
		return 0, backtest.ParameterErrorf("%s must be an integer, got %v", name, v)
	}
	if n <= 0 {
		return 0, backtest.ParameterErrorf("%s must be positive, got %d", name, n)
	}
	return n, nil
}

// floatParam reads params[name], falling back to def when absent.
func floatParam(params backtest.Params, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}
