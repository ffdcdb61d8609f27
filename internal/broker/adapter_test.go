package broker

import (
	"testing"

	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/models"
	brokerproto "github.com/onesecondtrader/backtest-core/proto"
)

func ptr(v float64) *float64 { return &v }

func TestToOrderRequestCarriesAllFields(t *testing.T) {
	req := toOrderRequest(brokerproto.OrderRequestKind_SUBMIT, "ord-1", "AAPL", 100, int32(models.OrderTypeLimit), int32(models.SideBuy), 10, ptr(50), ptr(45))

	if req.Kind != brokerproto.OrderRequestKind_SUBMIT {
		t.Errorf("Kind = %v, want SUBMIT", req.Kind)
	}
	if req.SystemOrderId != "ord-1" || req.Symbol != "AAPL" || req.TsEvent != 100 {
		t.Errorf("identity fields not carried through: %+v", req)
	}
	if req.Quantity != 10 {
		t.Errorf("Quantity = %v, want 10", req.Quantity)
	}
	if req.LimitPrice == nil || *req.LimitPrice != 50 {
		t.Errorf("LimitPrice = %v, want 50", req.LimitPrice)
	}
	if req.StopPrice == nil || *req.StopPrice != 45 {
		t.Errorf("StopPrice = %v, want 45", req.StopPrice)
	}
}

func TestOnEventTranslatesSubmissionWithoutPanicking(t *testing.T) {
	a := &GRPCAdapter{}
	a.OnEvent(events.OrderSubmissionRequest{
		Base: events.NewBase(1, 1), SystemOrderID: "1", Symbol: "AAPL",
		OrderType: models.OrderTypeMarket, Side: models.SideBuy, Quantity: 1,
	})
}

func TestOnEventTranslatesCancellationWithoutPanicking(t *testing.T) {
	a := &GRPCAdapter{}
	a.OnEvent(events.OrderCancellationRequest{Base: events.NewBase(1, 1), SystemOrderID: "1", Symbol: "AAPL"})
}

func TestOnEventTranslatesModificationCarriesQuantityWhenSet(t *testing.T) {
	a := &GRPCAdapter{}
	qty := 5.0
	// Exercises the ev.Quantity != nil branch in OnEvent; absence of a
	// panic confirms the *float64 dereference path is safe.
	a.OnEvent(events.OrderModificationRequest{
		Base: events.NewBase(1, 1), SystemOrderID: "1", Symbol: "AAPL",
		Quantity: &qty, LimitPrice: ptr(100),
	})
}

func TestOnEventIgnoresUnknownEventTypes(t *testing.T) {
	a := &GRPCAdapter{}
	// BarReceived is not one of the three forwarded request types; OnEvent
	// should silently no-op rather than panic on the type switch default.
	a.OnEvent(events.BarReceived{Base: events.NewBase(1, 1), Symbol: "AAPL"})
}

func TestBarPeriodFromProtoRoundTrips(t *testing.T) {
	if got := barPeriodFromProto(int32(models.BarPeriodHour)); got != models.BarPeriodHour {
		t.Fatalf("barPeriodFromProto(%v) = %v, want BarPeriodHour", int32(models.BarPeriodHour), got)
	}
}

func TestOnExceptionAndCleanupAreNoops(t *testing.T) {
	a := &GRPCAdapter{}
	a.OnException(nil, events.BarReceived{})
	a.Cleanup()
}
