package events

import "github.com/onesecondtrader/backtest-core/internal/models"

// OrderSubmissionRequest is a strategy's intent to submit a new order.
// LimitPrice and StopPrice are pointers because they are required only
// for a subset of order types (spec.md §3 invariants).
type OrderSubmissionRequest struct {
	Base
	SystemOrderID string
	Symbol        string
	OrderType     models.OrderType
	Side          models.TradeSide
	Quantity      float64
	LimitPrice    *float64
	StopPrice     *float64
	Action        models.ActionType
	Signal        string
}

func (OrderSubmissionRequest) EventTag() Tag { return TagOrderSubmissionRequest }

// OrderCancellationRequest asks the broker to cancel a pending order.
type OrderCancellationRequest struct {
	Base
	SystemOrderID string
	Symbol        string
}

func (OrderCancellationRequest) EventTag() Tag { return TagOrderCancellationRequest }

// OrderModificationRequest asks the broker to change one or more fields
// of a pending order. A nil field means "leave unchanged".
type OrderModificationRequest struct {
	Base
	SystemOrderID string
	Symbol        string
	Quantity      *float64
	LimitPrice    *float64
	StopPrice     *float64
}

func (OrderModificationRequest) EventTag() Tag { return TagOrderModificationRequest }
