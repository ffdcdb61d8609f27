package indicators

import (
	"fmt"
	"math"

	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/models"
)

func init() {
	Register("RSI", func(params map[string]float64) Indicator {
		return NewRSI(int(params["period"]), models.BarField(int(params["field"])))
	})
}

type rsiState struct {
	prevValue float64
	hasPrev   bool
	count     int
	sumGain   float64
	sumLoss   float64
	avgGain   float64
	avgLoss   float64
}

// RSI implements Wilder's relative strength index (spec.md §4.3).
// Grounded on original_source/indicators/wilders/rsi.py: NaN for every
// bar until `period` deltas have accumulated, a simple average of
// those `period` deltas on the bar that completes the window, and
// Wilder's recursive smoothing from then on. Deliberate divergence
// from the Python source: per spec.md §4.3/§8, when avg_loss is
// exactly zero this implementation always emits 100, regardless of
// avg_gain (the Python source emits 50 when avg_gain is also ~0;
// spec.md is authoritative here — see DESIGN.md Open Question 1).
type RSI struct {
	Base
	period int
	field  models.BarField
	state  map[string]*rsiState
}

func NewRSI(period int, field models.BarField) *RSI {
	return &RSI{
		Base:   NewBase(2, 'L', 'g', DefaultCapacity),
		period: period,
		field:  field,
		state:  make(map[string]*rsiState),
	}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d_%s", r.period, r.field)
}

const rsiEps = 1e-12

func (r *RSI) Compute(bar events.BarReceived) float64 {
	v := fieldValue(bar, r.field)
	st, ok := r.state[bar.Symbol]
	if !ok {
		st = &rsiState{}
		r.state[bar.Symbol] = st
	}

	if !st.hasPrev {
		st.prevValue = v
		st.hasPrev = true
		return math.NaN()
	}

	delta := v - st.prevValue
	st.prevValue = v
	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	st.count++
	n := float64(r.period)
	switch {
	case st.count < r.period:
		// Not enough deltas yet for even a first average; hold raw
		// sums and emit NaN, matching the Python source's count<period
		// window.
		st.sumGain += gain
		st.sumLoss += loss
		return math.NaN()
	case st.count == r.period:
		// The window just filled: seed avgGain/avgLoss with a simple
		// average of all `period` deltas seen so far.
		st.sumGain += gain
		st.sumLoss += loss
		st.avgGain = st.sumGain / n
		st.avgLoss = st.sumLoss / n
	default:
		st.avgGain = (st.avgGain*(n-1) + gain) / n
		st.avgLoss = (st.avgLoss*(n-1) + loss) / n
	}

	if st.avgLoss <= rsiEps {
		return 100
	}
	rs := st.avgGain / st.avgLoss
	return 100 - 100/(1+rs)
}

func (r *RSI) Update(bar events.BarReceived) {
	r.Append(bar.Symbol, r.Compute(bar))
}
