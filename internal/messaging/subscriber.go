package messaging

import (
	"sync"

	"github.com/onesecondtrader/backtest-core/internal/events"
)

// Handler is implemented by the component embedding Worker (a strategy,
// the matching engine, the run recorder). OnEvent is invoked
// sequentially, once per dequeued event, on the worker's own goroutine.
type Handler interface {
	OnEvent(e events.Event)
	// OnException is invoked when OnEvent panics. The worker recovers,
	// reports through OnException, and continues with the next event;
	// the event still counts as complete for barrier accounting
	// (spec.md §4.2).
	OnException(err any, e events.Event)
	// Cleanup runs exactly once at shutdown, after the sentinel has been
	// observed and the queue has drained.
	Cleanup()
}

// queueItem is one queue entry; a nil event is the sentinel enqueued by
// Shutdown.
type queueItem struct {
	event events.Event // nil means sentinel
}

// Worker gives an embedding component its own FIFO input queue and a
// dedicated goroutine that pulls events one at a time and invokes the
// handler (spec.md §4.2). It is the Go translation of
// core/event_subscriber.py's queue.Queue + task_done/join idle-barrier
// pattern: an unbounded slice-backed queue replaces queue.Queue, and a
// mutex-guarded counter + condition variable replaces join() (spec.md
// §9 DESIGN NOTES).
type Worker struct {
	handler Handler

	mu      sync.Mutex
	cond    *sync.Cond
	items   []queueItem
	pending int // events enqueued but not yet fully handled

	shutdownOnce sync.Once
	done         chan struct{}
}

// NewWorker constructs and starts a worker backed by handler. The
// caller is responsible for calling Shutdown exactly once.
func NewWorker(handler Handler) *Worker {
	w := &Worker{
		handler: handler,
		done:    make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

// Receive enqueues e and returns immediately; never blocks on handler
// execution (spec.md §4.2).
func (w *Worker) Receive(e events.Event) {
	w.mu.Lock()
	w.items = append(w.items, queueItem{event: e})
	w.pending++
	w.mu.Unlock()
	w.cond.Signal()
}

// WaitUntilIdle blocks until the queue is empty and no event is
// currently being handled.
func (w *Worker) WaitUntilIdle() {
	w.mu.Lock()
	for w.pending != 0 {
		w.cond.Wait()
	}
	w.mu.Unlock()
}

// Shutdown enqueues a sentinel, waits for the worker goroutine to drain
// the queue, handle the sentinel, run Cleanup, and exit. Safe to call
// more than once; only the first call has effect.
func (w *Worker) Shutdown() {
	w.shutdownOnce.Do(func() {
		w.mu.Lock()
		w.items = append(w.items, queueItem{event: nil})
		w.pending++
		w.mu.Unlock()
		w.cond.Signal()
		<-w.done
	})
}

func (w *Worker) loop() {
	for {
		w.mu.Lock()
		for len(w.items) == 0 {
			w.cond.Wait()
		}
		item := w.items[0]
		w.items = w.items[1:]
		w.mu.Unlock()

		if item.event == nil {
			w.finishItem()
			w.handler.Cleanup()
			close(w.done)
			return
		}

		w.invoke(item.event)
		w.finishItem()
	}
}

// invoke calls OnEvent, recovering a panic so that one misbehaving
// handler never kills the worker goroutine (spec.md §4.2, §7 "transient
// subscriber error").
func (w *Worker) invoke(e events.Event) {
	defer func() {
		if r := recover(); r != nil {
			w.handler.OnException(r, e)
		}
	}()
	w.handler.OnEvent(e)
}

func (w *Worker) finishItem() {
	w.mu.Lock()
	w.pending--
	if w.pending == 0 {
		w.cond.Broadcast()
	}
	w.mu.Unlock()
}
