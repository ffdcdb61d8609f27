package indicators

import (
	"math"
	"testing"

	"github.com/onesecondtrader/backtest-core/internal/models"
)

func TestRSIFirstBarIsNaN(t *testing.T) {
	rsi := NewRSI(14, models.BarFieldClose)
	rsi.Update(closeBar("AAPL", 100))
	if !math.IsNaN(rsi.Latest("AAPL")) {
		t.Fatalf("RSI after first bar = %v, want NaN (no prior delta)", rsi.Latest("AAPL"))
	}
}

func TestRSIStaysNaNUntilWindowFills(t *testing.T) {
	rsi := NewRSI(3, models.BarFieldClose)
	// First bar has no delta; next two complete only 2 of the 3 deltas
	// period=3 requires before a first average can be seeded.
	closes := []float64{100, 101, 102}
	for _, c := range closes {
		rsi.Update(closeBar("AAPL", c))
		if got := rsi.Latest("AAPL"); !math.IsNaN(got) {
			t.Fatalf("RSI(3) before window fills = %v, want NaN", got)
		}
	}
}

func TestRSIAllGainsSaturatesAt100(t *testing.T) {
	rsi := NewRSI(3, models.BarFieldClose)
	closes := []float64{100, 101, 102, 103, 104, 105}
	for _, c := range closes {
		rsi.Update(closeBar("AAPL", c))
	}
	if got := rsi.Latest("AAPL"); got != 100 {
		t.Fatalf("RSI with zero avg_loss = %v, want 100", got)
	}
}

func TestRSIStaysBetween0And100(t *testing.T) {
	rsi := NewRSI(5, models.BarFieldClose)
	closes := []float64{100, 98, 102, 95, 110, 90, 120, 85}
	for _, c := range closes {
		rsi.Update(closeBar("AAPL", c))
		v := rsi.Latest("AAPL")
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Fatalf("RSI = %v, want in [0, 100]", v)
		}
	}
}
