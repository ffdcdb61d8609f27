// Package examples provides one concrete strategy blueprint that
// exercises the full strategies.Base runtime end to end, for
// cmd/runbacktest and for tests that need a realistic (not
// hand-rolled-minimal) strategy. Adapted from the teacher's
// donchian_basis_strategy.go entry logic (Donchian-channel basis
// crossing a long-period moving average) into an event-driven
// strategies.Blueprint: the original's ad hoc slice-indexed
// CalculateIndicators/Run loop becomes indicators.PeriodExtreme (High/
// Low channel) plus indicators.SMA driving OnBar signal checks, and its
// fixed TP/SL bracket becomes two resting exit orders submitted when
// the entry order fills.
package examples

import (
	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/indicators"
	"github.com/onesecondtrader/backtest-core/internal/models"
	"github.com/onesecondtrader/backtest-core/internal/strategies"
)

// donchianState holds the per-instance indicators and entry-signal
// memory. One is created per Blueprint invocation (i.e. per strategy
// instance), captured by the Setup/OnBar closures below — replacing the
// teacher's struct-field state (DonchianBasisStrategy's own fields)
// with closure-captured state, since strategies.Base itself is opaque
// to user code beyond its exported accessors.
type donchianState struct {
	highChannel indicators.Indicator
	lowChannel  indicators.Indicator
	trend       indicators.Indicator
	// barsWithOrderWorking counts the bars still to be skipped after an
	// entry submission for a symbol still flat (set to 1 on submission,
	// decremented on the next bar); a MARKET entry fills on the bar after
	// acceptance, so a fresh signal is only re-armed once that bar has
	// passed.
	barsWithOrderWorking map[string]int
	// entryOrderIDs holds the system_order_id of every submitted entry
	// still awaiting a fill, so onFillDonchianBasis can tell an entry
	// fill (which should arm the TP/SL bracket) apart from an exit fill.
	entryOrderIDs map[string]struct{}
}

// DonchianBasisBlueprint returns a Blueprint reproducing the teacher's
// Donchian-basis-vs-trend-filter entry rule: long when price closes
// back above the channel midpoint from below while the midpoint sits
// above the trend SMA; short on the mirror condition. take_profit_pct/
// stop_loss_pct scale the fill price into resting LIMIT/STOP exit
// orders (spec.md §4.4, §4.5).
func DonchianBasisBlueprint(symbols []string, barPeriod models.BarPeriod) strategies.Blueprint {
	st := &donchianState{
		barsWithOrderWorking: make(map[string]int),
		entryOrderIDs:        make(map[string]struct{}),
	}
	return strategies.Blueprint{
		Name:      "donchian_basis",
		Symbols:   symbols,
		BarPeriod: barPeriod,
		Params: []strategies.ParamSpec{
			{Name: "channel_period", Default: 20},
			{Name: "trend_period", Default: 200},
			{Name: "take_profit_pct", Default: 0.026},
			{Name: "stop_loss_pct", Default: 0.01},
			{Name: "order_quantity", Default: 1},
		},
		Hooks: strategies.Hooks{
			Setup:  func(s *strategies.Base) { setupDonchianBasis(s, st) },
			OnBar:  func(s *strategies.Base, bp events.BarProcessed) { onBarDonchianBasis(s, st, bp) },
			OnFill: func(s *strategies.Base, e events.FillEvent) { onFillDonchianBasis(s, st, e) },
		},
	}
}

func setupDonchianBasis(s *strategies.Base, st *donchianState) {
	st.highChannel = s.AddIndicator(indicators.NewPeriodExtreme(int(s.Param("channel_period")), true))
	st.lowChannel = s.AddIndicator(indicators.NewPeriodExtreme(int(s.Param("channel_period")), false))
	st.trend = s.AddIndicator(indicators.NewSMA(int(s.Param("trend_period")), models.BarFieldClose))
}

func onBarDonchianBasis(s *strategies.Base, st *donchianState, bp events.BarProcessed) {
	if s.PositionFor(bp.Symbol).Quantity() != 0 {
		return
	}
	if st.barsWithOrderWorking[bp.Symbol] > 0 {
		st.barsWithOrderWorking[bp.Symbol]--
		return
	}

	high := st.highChannel.Latest(bp.Symbol)
	low := st.lowChannel.Latest(bp.Symbol)
	trend := st.trend.Latest(bp.Symbol)
	if isNaN(high) || isNaN(low) || isNaN(trend) {
		return
	}
	basis := (high + low) / 2

	long := basis > trend && bp.Open < basis && bp.Close > basis
	short := basis < trend && bp.Open > basis && bp.Close < basis
	if !long && !short {
		return
	}

	qty := s.Param("order_quantity")
	side := models.SideBuy
	if short {
		side = models.SideSell
	}
	id := s.SubmitOrder(models.OrderTypeMarket, side, qty, nil, nil, models.ActionEntry, "donchian_basis_cross", bp.Symbol)
	st.entryOrderIDs[id] = struct{}{}
	st.barsWithOrderWorking[bp.Symbol] = 1
}

// onFillDonchianBasis arms the fixed TP/SL bracket once an entry order
// fills: take_profit_pct and stop_loss_pct scale the fill price into a
// resting LIMIT take-profit and a resting STOP stop-loss on the
// opposite side, each sized to the filled quantity. Fills of the
// exit orders themselves are ignored (their system_order_id was never
// recorded in entryOrderIDs).
func onFillDonchianBasis(s *strategies.Base, st *donchianState, e events.FillEvent) {
	if _, ok := st.entryOrderIDs[e.SystemOrderID]; !ok {
		return
	}
	delete(st.entryOrderIDs, e.SystemOrderID)

	takeProfitPct := s.Param("take_profit_pct")
	stopLossPct := s.Param("stop_loss_pct")

	exitSide := models.SideSell
	takeProfitPrice := e.FillPrice * (1 + takeProfitPct)
	stopLossPrice := e.FillPrice * (1 - stopLossPct)
	if e.Side == models.SideSell {
		exitSide = models.SideBuy
		takeProfitPrice = e.FillPrice * (1 - takeProfitPct)
		stopLossPrice = e.FillPrice * (1 + stopLossPct)
	}

	s.SubmitOrder(models.OrderTypeLimit, exitSide, e.QuantityFilled, &takeProfitPrice, nil, models.ActionExit, "donchian_basis_take_profit", e.Symbol)
	s.SubmitOrder(models.OrderTypeStop, exitSide, e.QuantityFilled, nil, &stopLossPrice, models.ActionExit, "donchian_basis_stop_loss", e.Symbol)
}

func isNaN(v float64) bool { return v != v }
