package events

import "github.com/onesecondtrader/backtest-core/internal/models"

// BarReceived carries one OHLCV observation for a single symbol,
// exactly as it arrives from a data source (backtest or live).
type BarReceived struct {
	Base
	Symbol    string
	BarPeriod models.BarPeriod
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

func (BarReceived) EventTag() Tag { return TagBarReceived }

// BarProcessed carries the same OHLCV fields as BarReceived plus the
// per-indicator scalar outputs computed for this bar, keyed by an
// encoded name (spec.md §4.4 step 4). Published by the strategy
// runtime after it has driven every registered indicator.
type BarProcessed struct {
	Base
	Symbol     string
	BarPeriod  models.BarPeriod
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	Indicators map[string]float64
}

func (BarProcessed) EventTag() Tag { return TagBarProcessed }
