package models

import "testing"

func TestTradeSideSign(t *testing.T) {
	if SideBuy.Sign() != 1 {
		t.Fatalf("SideBuy.Sign() = %v, want 1", SideBuy.Sign())
	}
	if SideSell.Sign() != -1 {
		t.Fatalf("SideSell.Sign() = %v, want -1", SideSell.Sign())
	}
}

func TestBarPeriodStringMatchesSpecTable(t *testing.T) {
	cases := map[BarPeriod]string{
		BarPeriodSecond: "SECOND",
		BarPeriodMinute: "MINUTE",
		BarPeriodHour:   "HOUR",
		BarPeriodDay:    "DAY",
		BarPeriodWeek:   "WEEK",
	}
	for period, want := range cases {
		if got := period.String(); got != want {
			t.Errorf("BarPeriod(%d).String() = %q, want %q", period, got, want)
		}
	}
	if got := BarPeriod(0).String(); got != "UNKNOWN" {
		t.Errorf("BarPeriod(0).String() = %q, want UNKNOWN", got)
	}
}

func TestOrderTypeString(t *testing.T) {
	cases := map[OrderType]string{
		OrderTypeMarket:    "MARKET",
		OrderTypeLimit:     "LIMIT",
		OrderTypeStop:      "STOP",
		OrderTypeStopLimit: "STOP_LIMIT",
	}
	for ot, want := range cases {
		if got := ot.String(); got != want {
			t.Errorf("OrderType(%d).String() = %q, want %q", ot, got, want)
		}
	}
}

func TestPlotStyleLetterIsUniquePerStyle(t *testing.T) {
	styles := []PlotStyle{
		PlotStyleLine, PlotStyleHistogram, PlotStyleDots,
		PlotStyleDash1, PlotStyleDash2, PlotStyleDash3,
		PlotStyleBackground1, PlotStyleBackground2,
	}
	seen := map[byte]PlotStyle{}
	for _, s := range styles {
		l := s.Letter()
		if l == '?' {
			t.Errorf("PlotStyle(%d) has no letter mapping", s)
		}
		if other, ok := seen[l]; ok {
			t.Errorf("styles %d and %d share letter %q", other, s, l)
		}
		seen[l] = s
	}
}

func TestRejectionReasonStringsAreCanonical(t *testing.T) {
	if got := OrderRejectionMissingLimitPrice.String(); got != "MISSING_LIMIT_PRICE" {
		t.Fatalf("got %q", got)
	}
	if got := CancellationRejectionUnknownOrder.String(); got != "UNKNOWN_ORDER" {
		t.Fatalf("got %q", got)
	}
	if got := ModificationRejectionInvalidFields.String(); got != "INVALID_FIELDS" {
		t.Fatalf("got %q", got)
	}
	if got := OrderRejectionNone.String(); got != "NONE" {
		t.Fatalf("got %q, want NONE", got)
	}
}
