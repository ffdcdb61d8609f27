package events

import "github.com/onesecondtrader/backtest-core/internal/models"

// OrderAccepted acknowledges a well-formed OrderSubmissionRequest.
type OrderAccepted struct {
	Base
	SystemOrderID string
	TsBroker      int64
	BrokerOrderID *string
}

func (OrderAccepted) EventTag() Tag { return TagOrderAccepted }

// OrderRejected carries a canonical reason code for a malformed or
// otherwise unacceptable OrderSubmissionRequest.
type OrderRejected struct {
	Base
	SystemOrderID     string
	TsBroker          int64
	RejectionReason   models.OrderRejectionReason
	RejectionMessage  string
}

func (OrderRejected) EventTag() Tag { return TagOrderRejected }

// CancellationAccepted acknowledges a successful OrderCancellationRequest.
type CancellationAccepted struct {
	Base
	SystemOrderID string
	TsBroker      int64
}

func (CancellationAccepted) EventTag() Tag { return TagCancellationAccepted }

// CancellationRejected carries a canonical reason code for a
// cancellation request targeting an order that cannot be cancelled.
type CancellationRejected struct {
	Base
	SystemOrderID    string
	TsBroker         int64
	RejectionReason  models.CancellationRejectionReason
	RejectionMessage string
}

func (CancellationRejected) EventTag() Tag { return TagCancellationRejected }

// ModificationAccepted acknowledges a successful OrderModificationRequest.
type ModificationAccepted struct {
	Base
	SystemOrderID string
	TsBroker      int64
	Quantity      *float64
	LimitPrice    *float64
	StopPrice     *float64
}

func (ModificationAccepted) EventTag() Tag { return TagModificationAccepted }

// ModificationRejected carries a canonical reason code for a
// modification request that cannot be applied.
type ModificationRejected struct {
	Base
	SystemOrderID    string
	TsBroker         int64
	RejectionReason  models.ModificationRejectionReason
	RejectionMessage string
}

func (ModificationRejected) EventTag() Tag { return TagModificationRejected }
