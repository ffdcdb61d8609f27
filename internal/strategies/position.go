package strategies

import "github.com/shopspring/decimal"

// Position is the signed quantity of a symbol held by a strategy plus
// its weighted-average entry price (spec.md §3). Internal arithmetic
// uses decimal.Decimal to avoid float accumulation error across many
// fills (SPEC_FULL.md §3, grounded on the teacher's
// go-services/strategies/donchian_basis_strategy.go decimal-typed
// field style); the wire-level Quantity/AvgPrice getters convert back
// to float64 at the boundary.
type Position struct {
	quantity decimal.Decimal
	avgPrice decimal.Decimal
}

func (p Position) Quantity() float64 { return p.quantity.InexactFloat64() }
func (p Position) AvgPrice() float64 { return p.avgPrice.InexactFloat64() }

// ApplyFill updates the position for a fill of qtyFilled (signed: positive
// for BUY, negative for SELL) at price, implementing spec.md §4.4's
// position-update rule exactly:
//
//	q_new = q_old + q_fill
//	q_old == 0                        -> p_new = p_fill
//	sign(q_old) == sign(q_fill)       -> p_new = weighted average
//	sign(q_old) != sign(q_fill)
//	  and |q_fill| < |q_old|          -> p_new = p_old (reduction)
//	q_new == 0                        -> p_new = 0
//	sign(q_new) != sign(q_old)        -> p_new = p_fill (flip)
func (p *Position) ApplyFill(qtyFilled, price float64) {
	qFill := decimal.NewFromFloat(qtyFilled)
	pFill := decimal.NewFromFloat(price)
	qOld := p.quantity
	pOld := p.avgPrice
	qNew := qOld.Add(qFill)

	switch {
	case qOld.IsZero():
		p.avgPrice = pFill
	case sameSign(qOld, qFill):
		absOld := qOld.Abs()
		absFill := qFill.Abs()
		num := absOld.Mul(pOld).Add(absFill.Mul(pFill))
		den := absOld.Add(absFill)
		p.avgPrice = num.Div(den)
	case qFill.Abs().LessThan(qOld.Abs()):
		p.avgPrice = pOld
	default:
		p.avgPrice = pFill
	}

	if qNew.IsZero() {
		p.avgPrice = decimal.Zero
	} else if sign(qNew) != sign(qOld) {
		p.avgPrice = pFill
	}

	p.quantity = qNew
}

func sameSign(a, b decimal.Decimal) bool {
	return sign(a) == sign(b)
}

func sign(d decimal.Decimal) int {
	if d.IsPositive() {
		return 1
	}
	if d.IsNegative() {
		return -1
	}
	return 0
}
