package strategies

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/indicators"
	"github.com/onesecondtrader/backtest-core/internal/messaging"
	"github.com/onesecondtrader/backtest-core/internal/models"
)

// Hooks are the user-supplied callbacks a concrete strategy provides:
// Setup runs once after parameter resolution and is the only place
// additional indicators may be registered; OnBar runs once per
// BarProcessed for a configured symbol (spec.md §4.4); OnFill runs
// after a pending order's fill has already been applied to the
// position, letting a strategy submit follow-on orders (e.g. resting
// exits) against the post-fill state.
type Hooks struct {
	Setup  func(s *Base)
	OnBar  func(s *Base, bp events.BarProcessed)
	OnFill func(s *Base, e events.FillEvent)
}

// Config is everything needed to construct a strategy instance: name,
// universe, bar period, parameter schema with overrides, and the user
// hooks. Consumed by the builder in factory.go (spec.md §9's builder
// recommendation replacing Python's dynamic subclassing).
type Config struct {
	Name      string
	Symbols   []string
	BarPeriod models.BarPeriod
	Params    []ParamSpec
	Overrides map[string]float64
	Hooks     Hooks
	Logger    *zap.Logger
}

// Base is the strategy runtime: a subscriber that filters bars, drives
// indicators, emits BarProcessed, invokes user logic, and tracks orders
// and positions. Grounded in full on
// original_source/strategies/base.py's StrategyBase.
type Base struct {
	name      string
	symbols   map[string]struct{}
	barPeriod models.BarPeriod
	resolved  map[string]float64
	hooks     Hooks
	logger    *zap.Logger

	bus    *messaging.EventBus
	worker *messaging.Worker

	indicatorList []indicators.Indicator
	identity      map[models.BarField]*indicators.Identity

	activeSymbol string
	activeTs     int64

	positions map[string]*Position

	submittedOrders         map[string]*OrderRecord
	pendingOrders           map[string]*OrderRecord
	submittedModifications  map[string]*OrderRecord
	submittedCancellations  map[string]*OrderRecord
	fills                   []FillRecord
}

// New constructs a strategy against bus and starts its worker. The
// caller (the orchestrator) is responsible for subscribing it and
// calling Shutdown.
func New(bus *messaging.EventBus, cfg Config) *Base {
	symbolSet := make(map[string]struct{}, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbolSet[s] = struct{}{}
	}

	s := &Base{
		name:                   cfg.Name,
		symbols:                symbolSet,
		barPeriod:              cfg.BarPeriod,
		resolved:               resolveParams(cfg.Params, cfg.Overrides),
		hooks:                  cfg.Hooks,
		logger:                 cfg.Logger,
		bus:                    bus,
		identity:               make(map[models.BarField]*indicators.Identity),
		positions:              make(map[string]*Position),
		submittedOrders:        make(map[string]*OrderRecord),
		pendingOrders:          make(map[string]*OrderRecord),
		submittedModifications: make(map[string]*OrderRecord),
		submittedCancellations: make(map[string]*OrderRecord),
	}

	for _, f := range []models.BarField{
		models.BarFieldOpen, models.BarFieldHigh, models.BarFieldLow,
		models.BarFieldClose, models.BarFieldVolume,
	} {
		ind := indicators.NewIdentity(f)
		s.identity[f] = ind
		s.indicatorList = append(s.indicatorList, ind)
	}

	s.worker = messaging.NewWorker(s)

	if s.hooks.Setup != nil {
		s.hooks.Setup(s)
	}

	return s
}

// Subscriber returns the messaging.Subscriber the orchestrator
// registers with the bus (Receive/WaitUntilIdle delegate to the
// worker).
func (s *Base) Subscriber() messaging.Subscriber { return s.worker }

// Name is the strategy's canonical identifier.
func (s *Base) Name() string { return s.name }

// Symbols returns the configured symbol universe.
func (s *Base) Symbols() []string {
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}

// BarPeriod is the configured subscription period.
func (s *Base) BarPeriod() models.BarPeriod { return s.barPeriod }

// Param returns the resolved value of a parameter registered via Config.Params.
func (s *Base) Param(name string) float64 { return s.resolved[name] }

// AddIndicator registers ind for updates on every accepted bar and
// returns it for binding, matching spec.md §4.4's add_indicator(ind)
// contract. Must be called only from Setup.
func (s *Base) AddIndicator(ind indicators.Indicator) indicators.Indicator {
	s.indicatorList = append(s.indicatorList, ind)
	return ind
}

// Position returns the position for the currently active symbol. For
// cross-symbol logic use PositionFor.
func (s *Base) Position() Position { return s.PositionFor(s.activeSymbol) }

// PositionFor returns the position for an arbitrary symbol (zero value
// if the strategy has never received a fill for it).
func (s *Base) PositionFor(symbol string) Position {
	if p, ok := s.positions[symbol]; ok {
		return *p
	}
	return Position{}
}

func (s *Base) positionRef(symbol string) *Position {
	p, ok := s.positions[symbol]
	if !ok {
		p = &Position{}
		s.positions[symbol] = p
	}
	return p
}

// Shutdown stops the strategy's worker (drains, cleans up).
func (s *Base) Shutdown() { s.worker.Shutdown() }

// ---- messaging.Handler ----

func (s *Base) OnEvent(e events.Event) {
	switch ev := e.(type) {
	case events.BarReceived:
		s.onBarReceived(ev)
	case events.OrderAccepted:
		s.onOrderAccepted(ev)
	case events.OrderRejected:
		s.onOrderRejected(ev)
	case events.ModificationAccepted:
		s.onModificationAccepted(ev)
	case events.ModificationRejected:
		s.onModificationRejected(ev)
	case events.CancellationAccepted:
		s.onCancellationAccepted(ev)
	case events.CancellationRejected:
		s.onCancellationRejected(ev)
	case events.FillEvent:
		s.onOrderFilled(ev)
	case events.OrderExpired:
		s.onOrderExpired(ev)
	}
}

func (s *Base) OnException(err any, e events.Event) {
	if s.logger != nil {
		s.logger.Error("strategy handler panicked",
			zap.String("strategy", s.name),
			zap.Any("event", e),
			zap.Any("error", err),
		)
	}
}

func (s *Base) Cleanup() {}

// ---- bar processing pipeline (spec.md §4.4) ----

func (s *Base) onBarReceived(bar events.BarReceived) {
	if _, ok := s.symbols[bar.Symbol]; !ok {
		return
	}
	if bar.BarPeriod != s.barPeriod {
		return
	}

	s.activeSymbol = bar.Symbol
	s.activeTs = bar.TsEvent()

	for _, ind := range s.indicatorList {
		ind.Update(bar)
	}

	bp := s.buildBarProcessed(bar)
	s.bus.Publish(bp)

	if s.hooks.OnBar != nil {
		s.hooks.OnBar(s, bp)
	}
}

func (s *Base) buildBarProcessed(bar events.BarReceived) events.BarProcessed {
	out := make(map[string]float64, len(s.indicatorList))
	for _, ind := range s.indicatorList {
		if ind.PlotAt() == indicators.ReservedPanel {
			continue
		}
		key := encodeIndicatorKey(ind)
		out[key] = ind.Latest(bar.Symbol)
	}
	return events.BarProcessed{
		Base:       events.NewBase(bar.TsEvent(), bar.TsCreated()),
		Symbol:     bar.Symbol,
		BarPeriod:  bar.BarPeriod,
		Open:       bar.Open,
		High:       bar.High,
		Low:        bar.Low,
		Close:      bar.Close,
		Volume:     bar.Volume,
		Indicators: out,
	}
}

// encodeIndicatorKey builds the BarProcessed.Indicators map key: two
// decimal digits for plot_at, one letter for plot_as, one letter for
// plot_color, underscore-separated, then the indicator's own name
// (spec.md §4.4 step 4; see DESIGN.md Open Question 3 for why this is
// more detailed than original_source's plot_at-only encoding).
func encodeIndicatorKey(ind indicators.Indicator) string {
	return fmt.Sprintf("%02d_%c_%c_%s", ind.PlotAt(), ind.PlotStyleLetter(), ind.PlotColorLetter(), ind.Name())
}

// ---- order submission (spec.md §4.4) ----

// SubmitOrder generates a fresh system_order_id, records the order as
// Submitted, publishes an OrderSubmissionRequest, and returns the id.
// symbol defaults to the active symbol when empty.
func (s *Base) SubmitOrder(orderType models.OrderType, side models.TradeSide, quantity float64, limitPrice, stopPrice *float64, action models.ActionType, signal, symbol string) string {
	if symbol == "" {
		symbol = s.activeSymbol
	}
	id := uuid.New().String()
	s.submittedOrders[id] = &OrderRecord{
		SystemOrderID: id,
		Symbol:        symbol,
		OrderType:     orderType,
		Side:          side,
		Quantity:      quantity,
		LimitPrice:    limitPrice,
		StopPrice:     stopPrice,
		Signal:        signal,
	}
	s.bus.Publish(events.OrderSubmissionRequest{
		Base:          events.NewBase(s.activeTs, s.activeTs),
		SystemOrderID: id,
		Symbol:        symbol,
		OrderType:     orderType,
		Side:          side,
		Quantity:      quantity,
		LimitPrice:    limitPrice,
		StopPrice:     stopPrice,
		Action:        action,
		Signal:        signal,
	})
	return id
}

// ErrUnknownPendingOrder is returned (as an error-kind value, not a
// panic) by SubmitModification/SubmitCancellation when id does not name
// a currently pending order (spec.md §4.4 preconditions).
var ErrUnknownPendingOrder = fmt.Errorf("strategies: unknown pending order")

// SubmitModification moves id from pendingOrders to
// submittedModifications with the proposed fields and publishes an
// OrderModificationRequest. Precondition: id must be pending.
func (s *Base) SubmitModification(id string, quantity, limitPrice, stopPrice *float64) error {
	order, ok := s.pendingOrders[id]
	if !ok {
		return ErrUnknownPendingOrder
	}
	delete(s.pendingOrders, id)

	proposed := *order
	if quantity != nil {
		proposed.Quantity = *quantity
	}
	if limitPrice != nil {
		proposed.LimitPrice = limitPrice
	}
	if stopPrice != nil {
		proposed.StopPrice = stopPrice
	}
	s.submittedModifications[id] = &proposed

	s.bus.Publish(events.OrderModificationRequest{
		Base:          events.NewBase(s.activeTs, s.activeTs),
		SystemOrderID: id,
		Symbol:        order.Symbol,
		Quantity:      quantity,
		LimitPrice:    limitPrice,
		StopPrice:     stopPrice,
	})
	return nil
}

// SubmitCancellation moves id from pendingOrders to
// submittedCancellations and publishes an OrderCancellationRequest.
// Precondition: id must be pending.
func (s *Base) SubmitCancellation(id string) error {
	order, ok := s.pendingOrders[id]
	if !ok {
		return ErrUnknownPendingOrder
	}
	delete(s.pendingOrders, id)
	s.submittedCancellations[id] = order

	s.bus.Publish(events.OrderCancellationRequest{
		Base:          events.NewBase(s.activeTs, s.activeTs),
		SystemOrderID: id,
		Symbol:        order.Symbol,
	})
	return nil
}

// ---- response state machine (spec.md §4.4) ----

func (s *Base) onOrderAccepted(e events.OrderAccepted) {
	if order, ok := s.submittedOrders[e.SystemOrderID]; ok {
		delete(s.submittedOrders, e.SystemOrderID)
		s.pendingOrders[e.SystemOrderID] = order
	}
}

func (s *Base) onOrderRejected(e events.OrderRejected) {
	delete(s.submittedOrders, e.SystemOrderID)
}

func (s *Base) onModificationAccepted(e events.ModificationAccepted) {
	if order, ok := s.submittedModifications[e.SystemOrderID]; ok {
		delete(s.submittedModifications, e.SystemOrderID)
		s.pendingOrders[e.SystemOrderID] = order
	}
}

func (s *Base) onModificationRejected(e events.ModificationRejected) {
	if order, ok := s.submittedModifications[e.SystemOrderID]; ok {
		delete(s.submittedModifications, e.SystemOrderID)
		s.pendingOrders[e.SystemOrderID] = order
	}
}

func (s *Base) onCancellationAccepted(e events.CancellationAccepted) {
	delete(s.submittedCancellations, e.SystemOrderID)
}

func (s *Base) onCancellationRejected(e events.CancellationRejected) {
	if order, ok := s.submittedCancellations[e.SystemOrderID]; ok {
		delete(s.submittedCancellations, e.SystemOrderID)
		s.pendingOrders[e.SystemOrderID] = order
	}
}

func (s *Base) onOrderFilled(e events.FillEvent) {
	order, ok := s.pendingOrders[e.SystemOrderID]
	if !ok {
		return
	}
	delete(s.pendingOrders, e.SystemOrderID)

	signedQty := e.QuantityFilled
	if e.Side == models.SideSell {
		signedQty = -signedQty
	}
	s.positionRef(e.Symbol).ApplyFill(signedQty, e.FillPrice)

	s.fills = append(s.fills, FillRecord{
		SystemOrderID: e.SystemOrderID,
		FillID:        e.FillID,
		Symbol:        e.Symbol,
		Side:          e.Side,
		Quantity:      e.QuantityFilled,
		Price:         e.FillPrice,
		Commission:    e.Commission,
		TsBroker:      e.TsBroker,
	})

	if s.hooks.OnFill != nil {
		s.activeSymbol = e.Symbol
		s.activeTs = e.TsBroker
		s.hooks.OnFill(s, e)
	}
	_ = order
}

func (s *Base) onOrderExpired(e events.OrderExpired) {
	delete(s.pendingOrders, e.SystemOrderID)
}
