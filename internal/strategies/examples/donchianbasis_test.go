package examples

import (
	"sync"
	"testing"

	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/messaging"
	"github.com/onesecondtrader/backtest-core/internal/models"
	"github.com/onesecondtrader/backtest-core/internal/strategies"
)

type orderCapture struct {
	mu     sync.Mutex
	orders []events.OrderSubmissionRequest
}

func (c *orderCapture) Receive(e events.Event) {
	if req, ok := e.(events.OrderSubmissionRequest); ok {
		c.mu.Lock()
		c.orders = append(c.orders, req)
		c.mu.Unlock()
	}
}
func (c *orderCapture) WaitUntilIdle() {}

func (c *orderCapture) snapshot() []events.OrderSubmissionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.OrderSubmissionRequest, len(c.orders))
	copy(out, c.orders)
	return out
}

func newDonchianHarness(t *testing.T) (*messaging.EventBus, *orderCapture) {
	t.Helper()
	bus := messaging.NewEventBus()
	bp := DonchianBasisBlueprint([]string{"TEST"}, models.BarPeriodDay)
	bp.Params = []strategies.ParamSpec{
		{Name: "channel_period", Default: 2},
		{Name: "trend_period", Default: 4},
		{Name: "take_profit_pct", Default: 0.026},
		{Name: "stop_loss_pct", Default: 0.01},
		{Name: "order_quantity", Default: 1},
	}
	s := strategies.NewFactory(bp)(bus, nil, nil)
	t.Cleanup(s.Shutdown)

	sink := &orderCapture{}
	bus.Subscribe(events.TagOrderSubmissionRequest, sink)
	bus.Subscribe(events.TagBarReceived, s.Subscriber())
	bus.Subscribe(events.TagOrderAccepted, s.Subscriber())
	bus.Subscribe(events.TagFillEvent, s.Subscriber())
	return bus, sink
}

func bar(ts int64, symbol string, open, high, low, close float64) events.BarReceived {
	return events.BarReceived{Base: events.NewBase(ts, ts), Symbol: symbol, BarPeriod: models.BarPeriodDay, Open: open, High: high, Low: low, Close: close}
}

func TestDonchianBasisEntersLongOnBreakoutAboveTrend(t *testing.T) {
	bus, sink := newDonchianHarness(t)

	bars := []events.BarReceived{
		bar(1, "TEST", 90, 91, 89, 90),
		bar(2, "TEST", 90, 93, 91, 92),
		bar(3, "TEST", 92, 89, 87, 88),
		bar(4, "TEST", 88, 95, 85, 90),
		bar(5, "TEST", 89, 100, 94, 96),
	}
	for _, b := range bars {
		bus.Publish(b)
		bus.WaitUntilSystemIdle()
	}

	orders := sink.snapshot()
	if len(orders) != 1 {
		t.Fatalf("len(orders) = %d, want exactly 1 entry submission, got %+v", len(orders), orders)
	}
	if orders[0].Side != models.SideBuy {
		t.Fatalf("Side = %v, want Buy", orders[0].Side)
	}
	if orders[0].Action != models.ActionEntry {
		t.Fatalf("Action = %v, want Entry", orders[0].Action)
	}
}

func TestDonchianBasisStaysFlatWithoutBreakoutSignal(t *testing.T) {
	bus, sink := newDonchianHarness(t)

	// Flat, unchanging bars never produce a basis/trend divergence.
	for i := int64(1); i <= 6; i++ {
		bus.Publish(bar(i, "TEST", 100, 101, 99, 100))
		bus.WaitUntilSystemIdle()
	}

	if orders := sink.snapshot(); len(orders) != 0 {
		t.Fatalf("got %d order submissions on flat data, want 0", len(orders))
	}
}

func TestDonchianBasisArmsTakeProfitAndStopLossOnEntryFill(t *testing.T) {
	bus, sink := newDonchianHarness(t)

	bars := []events.BarReceived{
		bar(1, "TEST", 90, 91, 89, 90),
		bar(2, "TEST", 90, 93, 91, 92),
		bar(3, "TEST", 92, 89, 87, 88),
		bar(4, "TEST", 88, 95, 85, 90),
		bar(5, "TEST", 89, 100, 94, 96), // triggers a long entry
	}
	for _, b := range bars {
		bus.Publish(b)
		bus.WaitUntilSystemIdle()
	}

	entries := sink.snapshot()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want exactly 1 entry submission before fill", len(entries))
	}
	entryID := entries[0].SystemOrderID

	bus.Publish(events.OrderAccepted{SystemOrderID: entryID})
	bus.WaitUntilSystemIdle()
	bus.Publish(events.FillEvent{
		SystemOrderID:  entryID,
		Symbol:         "TEST",
		Side:           models.SideBuy,
		QuantityFilled: 1,
		FillPrice:      96,
	})
	bus.WaitUntilSystemIdle()

	orders := sink.snapshot()
	if len(orders) != 3 {
		t.Fatalf("len(orders) = %d, want 3 (1 entry + take-profit + stop-loss), got %+v", len(orders), orders)
	}

	takeProfit, stopLoss := orders[1], orders[2]
	if takeProfit.Action != models.ActionExit || stopLoss.Action != models.ActionExit {
		t.Fatalf("exit orders Action = %v, %v, want both Exit", takeProfit.Action, stopLoss.Action)
	}
	if takeProfit.Side != models.SideSell || stopLoss.Side != models.SideSell {
		t.Fatalf("exit orders Side = %v, %v, want both Sell (long entry exits)", takeProfit.Side, stopLoss.Side)
	}
	if takeProfit.OrderType != models.OrderTypeLimit || takeProfit.LimitPrice == nil {
		t.Fatalf("take-profit order = %+v, want LIMIT with a limit price", takeProfit)
	}
	if stopLoss.OrderType != models.OrderTypeStop || stopLoss.StopPrice == nil {
		t.Fatalf("stop-loss order = %+v, want STOP with a stop price", stopLoss)
	}
	fillPrice, takeProfitPct, stopLossPct := 96.0, 0.026, 0.01
	wantTakeProfit := fillPrice * (1 + takeProfitPct)
	wantStopLoss := fillPrice * (1 - stopLossPct)
	if *takeProfit.LimitPrice != wantTakeProfit {
		t.Fatalf("take-profit LimitPrice = %v, want %v", *takeProfit.LimitPrice, wantTakeProfit)
	}
	if *stopLoss.StopPrice != wantStopLoss {
		t.Fatalf("stop-loss StopPrice = %v, want %v", *stopLoss.StopPrice, wantStopLoss)
	}
}

func TestDonchianBasisSkipsSignalsOnWorkingBar(t *testing.T) {
	bus, sink := newDonchianHarness(t)

	bars := []events.BarReceived{
		bar(1, "TEST", 90, 91, 89, 90),
		bar(2, "TEST", 90, 93, 91, 92),
		bar(3, "TEST", 92, 89, 87, 88),
		bar(4, "TEST", 88, 95, 85, 90),
		bar(5, "TEST", 89, 100, 94, 96), // triggers entry, arms the 1-bar cooldown
		bar(6, "TEST", 96, 97, 95, 96),  // cooldown bar: no second signal even if conditions hold
	}
	for _, b := range bars {
		bus.Publish(b)
		bus.WaitUntilSystemIdle()
	}

	orders := sink.snapshot()
	if len(orders) != 1 {
		t.Fatalf("len(orders) = %d, want exactly 1 (cooldown bar must not re-enter while still flat)", len(orders))
	}
}
