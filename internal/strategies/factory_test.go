package strategies

import (
	"testing"

	"github.com/onesecondtrader/backtest-core/internal/messaging"
	"github.com/onesecondtrader/backtest-core/internal/models"
)

func TestFactoryBuildsConfiguredInstance(t *testing.T) {
	bp := Blueprint{
		Name:      "example",
		Symbols:   []string{"AAPL", "MSFT"},
		BarPeriod: models.BarPeriodHour,
		Params:    []ParamSpec{{Name: "period", Default: 20}},
	}
	bus := messaging.NewEventBus()
	s := NewFactory(bp)(bus, map[string]float64{"period": 30}, nil)
	defer s.Shutdown()

	if s.Name() != "example" {
		t.Fatalf("Name() = %q, want example", s.Name())
	}
	if s.BarPeriod() != models.BarPeriodHour {
		t.Fatalf("BarPeriod() = %v, want HOUR", s.BarPeriod())
	}
	if s.Param("period") != 30 {
		t.Fatalf("Param(period) = %v, want 30", s.Param("period"))
	}
	symbols := s.Symbols()
	if len(symbols) != 2 {
		t.Fatalf("Symbols() = %v, want 2 entries", symbols)
	}
}
