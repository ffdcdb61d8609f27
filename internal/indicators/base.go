// Package indicators implements the per-symbol bounded-history
// indicator framework (spec.md §4.3): each indicator reduces an
// incoming bar to one scalar per symbol, appends it to a bounded FIFO,
// and exposes uniform random-access reads.
package indicators

import (
	"math"
	"sync"

	"github.com/onesecondtrader/backtest-core/internal/events"
)

// DefaultCapacity is the default per-symbol history length, sufficient
// for the window sizes typical strategies configure (spec.md §3 leaves
// the exact number to the implementer).
const DefaultCapacity = 2048

// ReservedPanel is the sentinel plot_at value used by the five identity
// OHLCV indicators; the strategy runtime omits indicators at this panel
// from the BarProcessed.Indicators mapping (spec.md §4.4 step 4).
const ReservedPanel = 99

// Indicator is implemented by every concrete indicator. Computation
// (Compute) runs outside any lock; only the history buffer itself is
// guarded (spec.md §4.3 Internal contract).
type Indicator interface {
	Name() string
	PlotAt() int
	PlotStyleLetter() byte
	PlotColorLetter() byte
	// Compute derives the scalar for bar.Symbol. It may read and update
	// subclass-internal rolling state; that state is NOT protected by
	// the base's lock, so a concrete indicator must not be shared
	// across strategies running on different goroutines without its
	// own synchronization (in practice indicators are owned by exactly
	// one strategy's worker goroutine).
	Compute(bar events.BarReceived) float64
	// Update drives Compute and appends the result to bar.Symbol's
	// history.
	Update(bar events.BarReceived)
	// Latest returns the most recently appended value for symbol, or
	// NaN if empty.
	Latest(symbol string) float64
	// Get returns the value at a negative index (-1 latest, -2 prior,
	// ...), or NaN if the index is outside the populated range.
	Get(symbol string, index int) float64
}

// Base is embedded by every concrete indicator and implements the
// bounded-history bookkeeping shared by all of them.
type Base struct {
	plotAt        int
	plotStyleByte byte
	plotColorByte byte
	capacity      int

	mu      sync.Mutex
	history map[string][]float64
}

// NewBase constructs the shared bookkeeping for a concrete indicator.
func NewBase(plotAt int, plotStyleByte, plotColorByte byte, capacity int) Base {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return Base{
		plotAt:        plotAt,
		plotStyleByte: plotStyleByte,
		plotColorByte: plotColorByte,
		capacity:      capacity,
		history:       make(map[string][]float64),
	}
}

func (b *Base) PlotAt() int            { return b.plotAt }
func (b *Base) PlotStyleLetter() byte  { return b.plotStyleByte }
func (b *Base) PlotColorLetter() byte  { return b.plotColorByte }

// Append records value for symbol, evicting the oldest entry once the
// bounded capacity is reached. Guarded by the base lock; the caller's
// Compute must run before calling Append, outside any lock.
func (b *Base) Append(symbol string, value float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.history[symbol]
	h = append(h, value)
	if len(h) > b.capacity {
		h = h[len(h)-b.capacity:]
	}
	b.history[symbol] = h
}

func (b *Base) Latest(symbol string) float64 {
	return b.Get(symbol, -1)
}

func (b *Base) Get(symbol string, index int) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.history[symbol]
	if index >= 0 || -index > len(h) {
		return math.NaN()
	}
	return h[len(h)+index]
}

// Window returns a read-only copy of the last n populated values for
// symbol (oldest first), fewer if not yet filled. It reads the
// indicator's own output history; SMA, Bollinger and PeriodExtreme keep
// separate per-symbol windows of raw bar values for their statistics.
func (b *Base) Window(symbol string, n int) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.history[symbol]
	if len(h) <= n {
		out := make([]float64, len(h))
		copy(out, h)
		return out
	}
	out := make([]float64, n)
	copy(out, h[len(h)-n:])
	return out
}
