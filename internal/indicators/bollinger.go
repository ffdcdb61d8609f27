package indicators

import (
	"fmt"
	"math"

	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/models"
)

func init() {
	Register("BollingerUpper", func(params map[string]float64) Indicator {
		return NewBollinger(int(params["period"]), models.BarField(int(params["field"])), params["k"], true)
	})
	Register("BollingerLower", func(params map[string]float64) Indicator {
		return NewBollinger(int(params["period"]), models.BarField(int(params["field"])), params["k"], false)
	})
}

// Bollinger emits mean ± k*population_standard_deviation over the same
// rolling window SMA maintains (spec.md §4.3).
type Bollinger struct {
	Base
	period int
	field  models.BarField
	k      float64
	upper  bool
	window map[string][]float64
}

func NewBollinger(period int, field models.BarField, k float64, upper bool) *Bollinger {
	plotColor := byte('r')
	if upper {
		plotColor = 'p'
	}
	return &Bollinger{
		Base:   NewBase(1, 'D', plotColor, DefaultCapacity),
		period: period,
		field:  field,
		k:      k,
		upper:  upper,
		window: make(map[string][]float64),
	}
}

func (b *Bollinger) Name() string {
	side := "Lower"
	if b.upper {
		side = "Upper"
	}
	return fmt.Sprintf("Bollinger%s_%d_%s_%.2f", side, b.period, b.field, b.k)
}

func (b *Bollinger) Compute(bar events.BarReceived) float64 {
	v := fieldValue(bar, b.field)
	w := append(b.window[bar.Symbol], v)
	if len(w) > b.period {
		w = w[len(w)-b.period:]
	}
	b.window[bar.Symbol] = w

	mean := 0.0
	for _, x := range w {
		mean += x
	}
	mean /= float64(len(w))

	variance := 0.0
	for _, x := range w {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(w))
	stddev := math.Sqrt(variance)

	if b.upper {
		return mean + b.k*stddev
	}
	return mean - b.k*stddev
}

func (b *Bollinger) Update(bar events.BarReceived) {
	b.Append(bar.Symbol, b.Compute(bar))
}
