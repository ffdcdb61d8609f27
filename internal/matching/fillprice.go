// Package matching implements the simulated matching engine: request
// acceptance/validation and the fixed-order bar scan that fills pending
// orders (spec.md §4.5). Fill-price formulas are adapted from the
// teacher's go-services/services/engine/orders.go (ShouldFillLimit,
// ShouldTriggerStop, FillPriceLimit, FillPriceStopMarket), generalized
// from the teacher's bracket-order TP/SL model to spec.md's four-order-
// type fixed processing order, and cross-checked numerically against
// original_source/tests/brokers/test_simulated_broker.go.
package matching

import "github.com/onesecondtrader/backtest-core/internal/models"

// shouldTriggerStop reports whether a STOP (or STOP_LIMIT) order
// triggers against this bar: buy triggers when the high reaches up
// through stopPrice, sell triggers when the low reaches down through it
// (spec.md §4.5 rule 2).
func shouldTriggerStop(side models.TradeSide, stopPrice, high, low float64) bool {
	if side == models.SideBuy {
		return high >= stopPrice
	}
	return low <= stopPrice
}

// fillPriceStop computes the STOP fill price once triggered, modeling
// adverse slippage on a gap-through: buy fills at the worse of
// stopPrice and the bar's open, sell fills at the worse of stopPrice
// and the open (spec.md §4.5 rule 2).
func fillPriceStop(side models.TradeSide, stopPrice, open float64) float64 {
	if side == models.SideBuy {
		return max(stopPrice, open)
	}
	return min(stopPrice, open)
}

// shouldFillLimit reports whether a LIMIT order (or a STOP_LIMIT
// converted to LIMIT on the same bar) fills against this bar: buy fills
// when the low reaches down through limitPrice, sell fills when the
// high reaches up through it (spec.md §4.5 rule 4).
func shouldFillLimit(side models.TradeSide, limitPrice, high, low float64) bool {
	if side == models.SideBuy {
		return low <= limitPrice
	}
	return high >= limitPrice
}

// fillPriceLimit computes the LIMIT fill price once triggered, taking
// the better of the limit and the bar's open since the open may
// already be inside the limit: buy fills at the lesser of limitPrice
// and open, sell fills at the greater (spec.md §4.5 rule 4).
func fillPriceLimit(side models.TradeSide, limitPrice, open float64) float64 {
	if side == models.SideBuy {
		return min(limitPrice, open)
	}
	return max(limitPrice, open)
}
