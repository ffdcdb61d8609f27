package indicators

import (
	"fmt"
	"math"

	"github.com/onesecondtrader/backtest-core/internal/events"
)

func init() {
	Register("HighestHigh", func(params map[string]float64) Indicator {
		return NewPeriodExtreme(int(params["period"]), true)
	})
	Register("LowestLow", func(params map[string]float64) Indicator {
		return NewPeriodExtreme(int(params["period"]), false)
	})
}

// PeriodExtreme is the rolling highest-high or lowest-low over Period
// bars, used by channel/breakout strategies. Supplemented from
// original_source/indicators/period_extreme.py (dropped by the
// distillation, see SPEC_FULL.md §4.3); this implementation splits the
// original's single dual-purpose indicator into two named variants
// since spec.md §4.3's `name` contract requires the type to be encoded
// in the canonical identifier.
type PeriodExtreme struct {
	Base
	period  int
	highest bool
	window  map[string][]float64
}

func NewPeriodExtreme(period int, highest bool) *PeriodExtreme {
	return &PeriodExtreme{
		Base:    NewBase(0, 'D', 'y', DefaultCapacity),
		period:  period,
		highest: highest,
		window:  make(map[string][]float64),
	}
}

func (p *PeriodExtreme) Name() string {
	kind := "LowestLow"
	if p.highest {
		kind = "HighestHigh"
	}
	return fmt.Sprintf("%s_%d", kind, p.period)
}

func (p *PeriodExtreme) Compute(bar events.BarReceived) float64 {
	v := bar.Low
	if p.highest {
		v = bar.High
	}
	w := append(p.window[bar.Symbol], v)
	if len(w) > p.period {
		w = w[len(w)-p.period:]
	}
	p.window[bar.Symbol] = w

	extreme := w[0]
	for _, x := range w[1:] {
		if p.highest {
			extreme = math.Max(extreme, x)
		} else {
			extreme = math.Min(extreme, x)
		}
	}
	return extreme
}

func (p *PeriodExtreme) Update(bar events.BarReceived) {
	p.Append(bar.Symbol, p.Compute(bar))
}
