package events

import "github.com/onesecondtrader/backtest-core/internal/models"

// FillEvent reports the execution of a quantity of an order at a
// price. The engine described here never emits partials:
// QuantityFilled always equals the order's full quantity (spec.md §4.5),
// but the field is kept distinct from the order's original quantity so
// that a future partial-fill-capable engine does not need a schema
// change (spec.md §9 Open Questions).
type FillEvent struct {
	Base
	SystemOrderID  string
	FillID         string
	Symbol         string
	Side           models.TradeSide
	QuantityFilled float64
	FillPrice      float64
	Commission     float64
	Exchange       string
	TsBroker       int64
}

func (FillEvent) EventTag() Tag { return TagFillEvent }

// OrderExpired reports that a pending order's time-in-force elapsed
// without a fill. Not emitted by the default good-till-cancelled policy
// (spec.md §4.5).
type OrderExpired struct {
	Base
	SystemOrderID string
	Symbol        string
	TsBroker      int64
}

func (OrderExpired) EventTag() Tag { return TagOrderExpired }
