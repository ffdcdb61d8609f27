package strategies

import "github.com/onesecondtrader/backtest-core/internal/models"

// OrderRecord is the strategy-local view of an order it has submitted,
// tracked through submitted_orders / pending_orders / submitted_
// modifications / submitted_cancellations as it moves through the
// lifecycle described in spec.md §3 and §4.4.
type OrderRecord struct {
	SystemOrderID   string
	Symbol          string
	OrderType       models.OrderType
	Side            models.TradeSide
	Quantity        float64
	LimitPrice      *float64
	StopPrice       *float64
	Signal          string
	FilledQuantity  float64
}

// FillRecord is the strategy-local record of a fill applied to a
// position, kept for post-run analysis independent of the recorder.
type FillRecord struct {
	SystemOrderID string
	FillID        string
	Symbol        string
	Side          models.TradeSide
	Quantity      float64
	Price         float64
	Commission    float64
	TsBroker      int64
}
