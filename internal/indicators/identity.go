package indicators

import (
	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/models"
)

// Identity exposes a single OHLCV bar field as an indicator, so the
// strategy runtime can drive it through the same update/read pipeline
// as every other indicator (spec.md §4.3). Identity indicators are
// constructed at the strategy's reserved ReservedPanel and are omitted
// from BarProcessed.Indicators (spec.md §4.4 step 4).
type Identity struct {
	Base
	field models.BarField
}

// NewIdentity constructs the identity indicator for field.
func NewIdentity(field models.BarField) *Identity {
	return &Identity{
		Base:  NewBase(ReservedPanel, 'L', 'd', DefaultCapacity),
		field: field,
	}
}

func (i *Identity) Name() string {
	return i.field.String()
}

func (i *Identity) Compute(bar events.BarReceived) float64 {
	switch i.field {
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

func (i *Identity) Update(bar events.BarReceived) {
	i.Append(bar.Symbol, i.Compute(bar))
}
