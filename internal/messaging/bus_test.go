package messaging

import (
	"sync"
	"testing"

	"github.com/onesecondtrader/backtest-core/internal/events"
)

type recordingHandler struct {
	mu   sync.Mutex
	seen []events.Event
}

func (h *recordingHandler) OnEvent(e events.Event) {
	h.mu.Lock()
	h.seen = append(h.seen, e)
	h.mu.Unlock()
}

func (h *recordingHandler) OnException(err any, e events.Event) {}
func (h *recordingHandler) Cleanup()                             {}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func TestBusDeliversOnlyToSubscribersOfExactTag(t *testing.T) {
	bus := NewEventBus()
	barHandler := &recordingHandler{}
	fillHandler := &recordingHandler{}
	barWorker := NewWorker(barHandler)
	fillWorker := NewWorker(fillHandler)
	defer barWorker.Shutdown()
	defer fillWorker.Shutdown()

	bus.Subscribe(events.TagBarReceived, barWorker)
	bus.Subscribe(events.TagFillEvent, fillWorker)

	bus.Publish(events.BarReceived{Base: events.NewBase(1, 1), Symbol: "AAPL"})
	bus.WaitUntilSystemIdle()

	if got := barHandler.count(); got != 1 {
		t.Fatalf("barHandler.count() = %d, want 1", got)
	}
	if got := fillHandler.count(); got != 0 {
		t.Fatalf("fillHandler.count() = %d, want 0", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus()
	h := &recordingHandler{}
	w := NewWorker(h)
	defer w.Shutdown()

	bus.Subscribe(events.TagBarReceived, w)
	bus.Unsubscribe(events.TagBarReceived, w)
	bus.Publish(events.BarReceived{Base: events.NewBase(1, 1), Symbol: "AAPL"})
	bus.WaitUntilSystemIdle()

	if got := h.count(); got != 0 {
		t.Fatalf("h.count() = %d, want 0", got)
	}
}

func TestWaitUntilSystemIdleBlocksUntilQueueDrained(t *testing.T) {
	bus := NewEventBus()
	h := &recordingHandler{}
	w := NewWorker(h)
	defer w.Shutdown()
	bus.Subscribe(events.TagBarReceived, w)

	for i := 0; i < 50; i++ {
		bus.Publish(events.BarReceived{Base: events.NewBase(int64(i), int64(i)), Symbol: "AAPL"})
	}
	bus.WaitUntilSystemIdle()

	if got := h.count(); got != 50 {
		t.Fatalf("h.count() = %d, want 50", got)
	}
}
