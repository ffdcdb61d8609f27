package indicators

import (
	"fmt"

	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/models"
)

func init() {
	Register("SMA", func(params map[string]float64) Indicator {
		period := int(params["period"])
		field := models.BarField(int(params["field"]))
		return NewSMA(period, field)
	})
}

// SMA is the arithmetic mean of the last Period values of Field.
// Before Period values have been accumulated it emits the mean of
// whatever has been seen so far (spec.md §4.3, §8 boundary behavior).
type SMA struct {
	Base
	period int
	field  models.BarField
	window map[string][]float64 // per-symbol ring of up to period raw field values
}

func NewSMA(period int, field models.BarField) *SMA {
	return &SMA{
		Base:   NewBase(1, 'L', 'b', DefaultCapacity),
		period: period,
		field:  field,
		window: make(map[string][]float64),
	}
}

func (s *SMA) Name() string {
	return fmt.Sprintf("SMA_%d_%s", s.period, s.field)
}

func fieldValue(bar events.BarReceived, field models.BarField) float64 {
	switch field {
	case models.BarFieldOpen:
		return bar.Open
	case models.BarFieldHigh:
		return bar.High
	case models.BarFieldLow:
		return bar.Low
	case models.BarFieldClose:
		return bar.Close
	case models.BarFieldVolume:
		return bar.Volume
	default:
		return 0
	}
}

func (s *SMA) Compute(bar events.BarReceived) float64 {
	v := fieldValue(bar, s.field)
	w := append(s.window[bar.Symbol], v)
	if len(w) > s.period {
		w = w[len(w)-s.period:]
	}
	s.window[bar.Symbol] = w
	sum := 0.0
	for _, x := range w {
		sum += x
	}
	return sum / float64(len(w))
}

func (s *SMA) Update(bar events.BarReceived) {
	s.Append(bar.Symbol, s.Compute(bar))
}
