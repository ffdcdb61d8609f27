package strategies

import (
	"go.uber.org/zap"

	"github.com/onesecondtrader/backtest-core/internal/messaging"
	"github.com/onesecondtrader/backtest-core/internal/models"
)

// Factory constructs a configured strategy instance from a resolved
// configuration map. Replaces Python's dynamic subclassing (a dashboard
// creating per-run configured strategy instances) with an explicit
// builder that NewFactory produces once per strategy type (spec.md §9
// DESIGN NOTES).
type Factory func(bus *messaging.EventBus, overrides map[string]float64, logger *zap.Logger) *Base

// Blueprint is a strategy's static declaration: name, symbol universe,
// bar period, parameter schema, and user hooks. NewFactory closes over
// a Blueprint to produce a Factory.
type Blueprint struct {
	Name      string
	Symbols   []string
	BarPeriod models.BarPeriod
	Params    []ParamSpec
	Hooks     Hooks
}

// NewFactory returns a Factory bound to bp.
func NewFactory(bp Blueprint) Factory {
	return func(bus *messaging.EventBus, overrides map[string]float64, logger *zap.Logger) *Base {
		return New(bus, Config{
			Name:      bp.Name,
			Symbols:   bp.Symbols,
			BarPeriod: bp.BarPeriod,
			Params:    bp.Params,
			Overrides: overrides,
			Hooks:     bp.Hooks,
			Logger:    logger,
		})
	}
}
