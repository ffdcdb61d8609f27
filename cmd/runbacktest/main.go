// Command runbacktest is the CLI entrypoint: it resolves configuration,
// builds the strategy universe, and drives one orchestrator.Run to
// completion. Structure grounded on go-services/cmd/server/main.go's
// config.Load/zap.NewProduction/defer logger.Sync() startup sequence,
// minus the gRPC/HTTP dashboard surface that file also brings up (out
// of scope, see DESIGN.md).
package main

import (
	"context"
	"log"
	"strings"

	"go.uber.org/zap"

	"github.com/onesecondtrader/backtest-core/internal/config"
	"github.com/onesecondtrader/backtest-core/internal/models"
	"github.com/onesecondtrader/backtest-core/internal/orchestrator"
	"github.com/onesecondtrader/backtest-core/internal/strategies/examples"
)

func main() {
	cfg := config.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting backtest run",
		zap.String("run_name", cfg.RunName),
		zap.String("symbols", cfg.Symbols),
		zap.String("bar_period", cfg.BarPeriod),
	)

	symbols := splitSymbols(cfg.Symbols)
	barPeriod := parseBarPeriod(cfg.BarPeriod)

	plans := []orchestrator.StrategyPlan{
		{Blueprint: examples.DonchianBasisBlueprint(symbols, barPeriod)},
	}

	orch := orchestrator.New(cfg, logger, plans)
	if err := orch.Run(context.Background()); err != nil {
		logger.Fatal("backtest run failed", zap.Error(err))
	}
	logger.Info("backtest run completed")
}

func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBarPeriod(raw string) models.BarPeriod {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SECOND":
		return models.BarPeriodSecond
	case "HOUR":
		return models.BarPeriodHour
	case "DAY":
		return models.BarPeriodDay
	case "WEEK":
		return models.BarPeriodWeek
	default:
		return models.BarPeriodMinute
	}
}
