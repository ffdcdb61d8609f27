package matching

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/messaging"
	"github.com/onesecondtrader/backtest-core/internal/models"
)

// CommissionSchedule configures the per-unit and minimum commission
// applied to every fill (spec.md §4.5: "commission computed as
// max(quantity * commission_per_unit, minimum_commission_per_order)").
type CommissionSchedule struct {
	PerUnit    float64
	MinPerOrder float64
	Exchange   string
}

// pendingOrder is the matching engine's internal view of an accepted
// order (spec.md §3 "Order (internal to matching engine)"). A
// STOP_LIMIT order that has triggered is converted in place to LIMIT
// (DESIGN.md Open Question 4).
type pendingOrder struct {
	systemOrderID string
	symbol        string
	orderType     models.OrderType
	side          models.TradeSide
	quantity      float64
	limitPrice    *float64
	stopPrice     *float64

	// acceptedAtTsEvent is the ts_event of the bar during which this
	// order was accepted. A MARKET order only fills against a bar whose
	// ts_event is strictly later, guaranteeing "next bar, never the
	// acceptance bar" deterministically regardless of the unspecified
	// relative processing order between the engine's own BarReceived
	// handling and the strategy's order submission within the same
	// ts_event group (spec.md §5, §9 Open Questions; DESIGN.md Open
	// Question 5).
	acceptedAtTsEvent int64
}

// Engine is the simulated matching engine: a subscriber to all three
// request types and BarReceived (spec.md §4.5).
type Engine struct {
	bus        *messaging.EventBus
	worker     *messaging.Worker
	commission CommissionSchedule
	logger     *zap.Logger
	symbols    map[string]struct{}

	pendingBySymbol map[string][]*pendingOrder
	byID            map[string]*pendingOrder
}

// New constructs the matching engine and starts its worker. symbols is
// the run's known universe (spec.md §4.7's collect_symbols); a
// submission naming a symbol outside it is rejected with
// OrderRejectionUnknownSymbol rather than accepted and left to never
// fill. An empty symbols skips this check entirely.
func New(bus *messaging.EventBus, commission CommissionSchedule, symbols []string, logger *zap.Logger) *Engine {
	symbolSet := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		symbolSet[s] = struct{}{}
	}
	e := &Engine{
		bus:             bus,
		commission:      commission,
		logger:          logger,
		symbols:         symbolSet,
		pendingBySymbol: make(map[string][]*pendingOrder),
		byID:            make(map[string]*pendingOrder),
	}
	e.worker = messaging.NewWorker(e)
	return e
}

// Subscriber returns the messaging.Subscriber the orchestrator
// registers for the request and BarReceived tags.
func (e *Engine) Subscriber() messaging.Subscriber { return e.worker }

// Shutdown stops the engine's worker.
func (e *Engine) Shutdown() { e.worker.Shutdown() }

func (e *Engine) OnEvent(evt events.Event) {
	switch ev := evt.(type) {
	case events.OrderSubmissionRequest:
		e.onSubmission(ev)
	case events.OrderCancellationRequest:
		e.onCancellation(ev)
	case events.OrderModificationRequest:
		e.onModification(ev)
	case events.BarReceived:
		e.onBar(ev)
	}
}

func (e *Engine) OnException(err any, evt events.Event) {
	if e.logger != nil {
		e.logger.Error("matching engine handler panicked", zap.Any("event", evt), zap.Any("error", err))
	}
}

func (e *Engine) Cleanup() {}

// ---- request acceptance (spec.md §4.5 "Request acceptance") ----

func (e *Engine) validateSubmission(req events.OrderSubmissionRequest) models.OrderRejectionReason {
	if len(e.symbols) > 0 {
		if _, ok := e.symbols[req.Symbol]; !ok {
			return models.OrderRejectionUnknownSymbol
		}
	}
	if req.Quantity <= 0 {
		return models.OrderRejectionNonPositiveQuantity
	}
	switch req.OrderType {
	case models.OrderTypeLimit:
		if req.LimitPrice == nil {
			return models.OrderRejectionMissingLimitPrice
		}
	case models.OrderTypeStop:
		if req.StopPrice == nil {
			return models.OrderRejectionMissingStopPrice
		}
	case models.OrderTypeStopLimit:
		if req.LimitPrice == nil {
			return models.OrderRejectionMissingLimitPrice
		}
		if req.StopPrice == nil {
			return models.OrderRejectionMissingStopPrice
		}
	case models.OrderTypeMarket:
		// no extra fields required
	default:
		return models.OrderRejectionUnknownOrderType
	}
	return models.OrderRejectionNone
}

func (e *Engine) onSubmission(req events.OrderSubmissionRequest) {
	if reason := e.validateSubmission(req); reason != models.OrderRejectionNone {
		e.bus.Publish(events.OrderRejected{
			Base:             events.NewBase(req.TsEvent(), req.TsEvent()),
			SystemOrderID:    req.SystemOrderID,
			TsBroker:         req.TsEvent(),
			RejectionReason:  reason,
			RejectionMessage: reason.String(),
		})
		return
	}

	order := &pendingOrder{
		systemOrderID:     req.SystemOrderID,
		symbol:            req.Symbol,
		orderType:         req.OrderType,
		side:              req.Side,
		quantity:          req.Quantity,
		limitPrice:        req.LimitPrice,
		stopPrice:         req.StopPrice,
		acceptedAtTsEvent: req.TsEvent(),
	}
	e.byID[order.systemOrderID] = order
	e.pendingBySymbol[order.symbol] = append(e.pendingBySymbol[order.symbol], order)

	e.bus.Publish(events.OrderAccepted{
		Base:          events.NewBase(req.TsEvent(), req.TsEvent()),
		SystemOrderID: req.SystemOrderID,
		TsBroker:      req.TsEvent(),
	})
}

func (e *Engine) onCancellation(req events.OrderCancellationRequest) {
	order, ok := e.byID[req.SystemOrderID]
	if !ok {
		e.bus.Publish(events.CancellationRejected{
			Base:             events.NewBase(req.TsEvent(), req.TsEvent()),
			SystemOrderID:    req.SystemOrderID,
			TsBroker:         req.TsEvent(),
			RejectionReason:  models.CancellationRejectionUnknownOrder,
			RejectionMessage: models.CancellationRejectionUnknownOrder.String(),
		})
		return
	}
	e.removeOrder(order)
	e.bus.Publish(events.CancellationAccepted{
		Base:          events.NewBase(req.TsEvent(), req.TsEvent()),
		SystemOrderID: req.SystemOrderID,
		TsBroker:      req.TsEvent(),
	})
}

func (e *Engine) onModification(req events.OrderModificationRequest) {
	order, ok := e.byID[req.SystemOrderID]
	if !ok {
		e.bus.Publish(events.ModificationRejected{
			Base:             events.NewBase(req.TsEvent(), req.TsEvent()),
			SystemOrderID:    req.SystemOrderID,
			TsBroker:         req.TsEvent(),
			RejectionReason:  models.ModificationRejectionUnknownOrder,
			RejectionMessage: models.ModificationRejectionUnknownOrder.String(),
		})
		return
	}
	if req.Quantity != nil {
		order.quantity = *req.Quantity
	}
	if req.LimitPrice != nil {
		order.limitPrice = req.LimitPrice
	}
	if req.StopPrice != nil {
		order.stopPrice = req.StopPrice
	}
	e.bus.Publish(events.ModificationAccepted{
		Base:          events.NewBase(req.TsEvent(), req.TsEvent()),
		SystemOrderID: req.SystemOrderID,
		TsBroker:      req.TsEvent(),
		Quantity:      req.Quantity,
		LimitPrice:    req.LimitPrice,
		StopPrice:     req.StopPrice,
	})
}

func (e *Engine) removeOrder(order *pendingOrder) {
	delete(e.byID, order.systemOrderID)
	list := e.pendingBySymbol[order.symbol]
	for i, o := range list {
		if o == order {
			e.pendingBySymbol[order.symbol] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// ---- bar scan (spec.md §4.5 "Matching on each BarReceived") ----

func (e *Engine) onBar(bar events.BarReceived) {
	orders := e.pendingBySymbol[bar.Symbol]
	if len(orders) == 0 {
		return
	}
	// Snapshot: filling mutates pendingBySymbol via removeOrder, so
	// iterate over a copy.
	snapshot := make([]*pendingOrder, len(orders))
	copy(snapshot, orders)

	// Fixed processing order: MARKET, STOP, STOP_LIMIT-as-LIMIT, LIMIT
	// (spec.md §4.5).
	e.fillPass(snapshot, bar, models.OrderTypeMarket)
	e.fillPass(snapshot, bar, models.OrderTypeStop)
	e.convertTriggeredStopLimits(snapshot, bar)
	e.fillPass(snapshot, bar, models.OrderTypeLimit)
}

func (e *Engine) fillPass(orders []*pendingOrder, bar events.BarReceived, orderType models.OrderType) {
	for _, order := range orders {
		if order.orderType != orderType {
			continue
		}
		if _, stillPending := e.byID[order.systemOrderID]; !stillPending {
			continue
		}

		switch orderType {
		case models.OrderTypeMarket:
			if bar.TsEvent() <= order.acceptedAtTsEvent {
				continue
			}
			e.fill(order, bar.Open, bar)
		case models.OrderTypeStop:
			if order.stopPrice == nil || !shouldTriggerStop(order.side, *order.stopPrice, bar.High, bar.Low) {
				continue
			}
			e.fill(order, fillPriceStop(order.side, *order.stopPrice, bar.Open), bar)
		case models.OrderTypeLimit:
			if order.limitPrice == nil || !shouldFillLimit(order.side, *order.limitPrice, bar.High, bar.Low) {
				continue
			}
			e.fill(order, fillPriceLimit(order.side, *order.limitPrice, bar.Open), bar)
		}
	}
}

// convertTriggeredStopLimits converts any STOP_LIMIT order that
// triggers on this bar into a LIMIT order in place, so the subsequent
// LIMIT pass evaluates it on the same bar (spec.md §4.5 rule 3).
func (e *Engine) convertTriggeredStopLimits(orders []*pendingOrder, bar events.BarReceived) {
	for _, order := range orders {
		if order.orderType != models.OrderTypeStopLimit {
			continue
		}
		if _, stillPending := e.byID[order.systemOrderID]; !stillPending {
			continue
		}
		if order.stopPrice == nil || !shouldTriggerStop(order.side, *order.stopPrice, bar.High, bar.Low) {
			continue
		}
		order.orderType = models.OrderTypeLimit
	}
}

func (e *Engine) fill(order *pendingOrder, price float64, bar events.BarReceived) {
	e.removeOrder(order)

	qty := decimal.NewFromFloat(order.quantity)
	perUnit := decimal.NewFromFloat(e.commission.PerUnit)
	minCommission := decimal.NewFromFloat(e.commission.MinPerOrder)
	commission := decimal.Max(qty.Mul(perUnit), minCommission)

	e.bus.Publish(events.FillEvent{
		Base:           events.NewBase(bar.TsEvent(), bar.TsEvent()),
		SystemOrderID:  order.systemOrderID,
		FillID:         uuid.New().String(),
		Symbol:         order.symbol,
		Side:           order.side,
		QuantityFilled: order.quantity,
		FillPrice:      price,
		Commission:     commission.InexactFloat64(),
		Exchange:       e.commission.Exchange,
		TsBroker:       bar.TsEvent(),
	})
}
