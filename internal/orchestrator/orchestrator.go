// Package orchestrator wires the bus, recorder, matching engine (or a
// live broker.Adapter), strategies, and datafeed into one run, and
// drives that run to completion (spec.md §4.7). Construction and
// teardown order, run-id generation, and the run-status lifecycle are
// grounded in full on
// original_source/src/onesecondtrader/orchestrator/orchestrator.py's
// Orchestrator.run/_shutdown.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/onesecondtrader/backtest-core/internal/broker"
	"github.com/onesecondtrader/backtest-core/internal/config"
	"github.com/onesecondtrader/backtest-core/internal/datafeed"
	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/matching"
	"github.com/onesecondtrader/backtest-core/internal/messaging"
	"github.com/onesecondtrader/backtest-core/internal/models"
	"github.com/onesecondtrader/backtest-core/internal/recorder"
	"github.com/onesecondtrader/backtest-core/internal/strategies"
)

// engineTags and strategyTags list the tags the matching engine (or a
// live broker.Adapter) and every strategy subscribe to, respectively
// (spec.md §4.5, §4.4).
var engineTags = []events.Tag{
	events.TagOrderSubmissionRequest,
	events.TagOrderCancellationRequest,
	events.TagOrderModificationRequest,
	events.TagBarReceived,
}

var strategyTags = []events.Tag{
	events.TagBarReceived,
	events.TagOrderAccepted,
	events.TagOrderRejected,
	events.TagCancellationAccepted,
	events.TagCancellationRejected,
	events.TagModificationAccepted,
	events.TagModificationRejected,
	events.TagFillEvent,
	events.TagOrderExpired,
}

// allTags lists every concrete event tag, used to subscribe the
// recorder to the full taxonomy (spec.md §4.6).
func allTags() []events.Tag {
	tags := make([]events.Tag, events.NumTags)
	for i := range tags {
		tags[i] = events.Tag(i)
	}
	return tags
}

// StrategyPlan pairs a Blueprint with the parameter overrides this run
// applies to it, mirroring original_source's
// Orchestrator(strategies=[...]) list of strategy classes.
type StrategyPlan struct {
	Blueprint strategies.Blueprint
	Overrides map[string]float64
}

// Orchestrator owns one run's lifecycle end to end.
type Orchestrator struct {
	cfg    *config.Config
	plans  []StrategyPlan
	logger *zap.Logger

	bus        *messaging.EventBus
	rec        *recorder.RunRecorder
	engine     *matching.Engine
	liveBroker broker.Adapter
	built      []*strategies.Base
	feed       *datafeed.SimulatedDatafeed

	runID string
}

// New constructs an Orchestrator for the given strategy plans (spec.md
// §4.4's builder pattern feeding §4.7's orchestrator).
func New(cfg *config.Config, logger *zap.Logger, plans []StrategyPlan) *Orchestrator {
	return &Orchestrator{cfg: cfg, logger: logger, plans: plans}
}

// Run executes one full backtest: construct, connect, subscribe, replay
// to completion, then tear down in reverse order (spec.md §4.7).
func (o *Orchestrator) Run(ctx context.Context) error {
	o.runID = generateRunID(o.plans)
	o.bus = messaging.NewEventBus()

	symbols, barPeriod := collectUniverse(o.plans)

	rec, err := recorder.New(ctx, recorder.Options{
		Addr:     []string{o.cfg.ClickHouse.Addr},
		Database: o.cfg.ClickHouse.Database,
		Username: o.cfg.ClickHouse.Username,
		Password: o.cfg.ClickHouse.Password,
		RunID:    o.runID,
		Name:     o.runID,
		Config: map[string]any{
			"symbols":    symbols,
			"bar_period": barPeriod.String(),
			"strategies": strategyNames(o.plans),
		},
	})
	if err != nil {
		return fmt.Errorf("orchestrator: create recorder: %w", err)
	}
	o.rec = rec
	for _, tag := range allTags() {
		o.bus.Subscribe(tag, rec.Subscriber())
	}

	if o.cfg.LiveBroker != "" {
		adapter, dialErr := broker.Dial(o.bus, o.cfg.LiveBroker)
		if dialErr != nil {
			o.failRun(ctx, dialErr)
			o.shutdown()
			return dialErr
		}
		o.liveBroker = adapter
		for _, tag := range engineTags {
			o.bus.Subscribe(tag, adapter.Subscriber())
		}
	} else {
		o.engine = matching.New(o.bus, matching.CommissionSchedule{
			PerUnit:     o.cfg.Commission.PerUnit,
			MinPerOrder: o.cfg.Commission.MinPerOrder,
			Exchange:    o.cfg.Commission.Exchange,
		}, symbols, o.logger)
		for _, tag := range engineTags {
			o.bus.Subscribe(tag, o.engine.Subscriber())
		}
	}

	for _, plan := range o.plans {
		factory := strategies.NewFactory(plan.Blueprint)
		s := factory(o.bus, plan.Overrides, o.logger)
		o.built = append(o.built, s)
		for _, tag := range strategyTags {
			o.bus.Subscribe(tag, s.Subscriber())
		}
	}

	o.feed = datafeed.New(o.bus, datafeed.Options{
		Addr:          []string{o.cfg.ClickHouse.Addr},
		Database:      o.cfg.ClickHouse.Database,
		Username:      o.cfg.ClickHouse.Username,
		Password:      o.cfg.ClickHouse.Password,
		PublisherName: o.cfg.Datafeed.PublisherName,
		Dataset:       o.cfg.Datafeed.Dataset,
		SymbolType:    o.cfg.Datafeed.SymbolType,
		PriceScale:    o.cfg.Datafeed.PriceScale,
	})

	if connErr := o.feed.Connect(ctx); connErr != nil {
		o.failRun(ctx, connErr)
		o.shutdown()
		return connErr
	}
	o.feed.Subscribe(symbols, barPeriod)

	runErr := o.waitForCompletionOrRecorderFailure(ctx)
	if runErr == nil {
		o.bus.WaitUntilSystemIdle()
		runErr = o.rec.UpdateRunStatus(ctx, recorder.RunStatusCompleted, time.Now().UnixNano())
	} else {
		o.failRun(ctx, runErr)
	}
	o.shutdown()
	return runErr
}

// waitForCompletionOrRecorderFailure races the datafeed's replay
// against the recorder's FatalErr signal: repeated recorder flush
// failures are a Fatal run error in their own right (spec.md §7), not
// just a data-source completion condition, so the run must stop and
// propagate even while bars are still being replayed. Cancelling
// runCtx causes the in-flight feed query to unwind; the last in-flight
// bar group is still allowed to complete (spec.md §5).
func (o *Orchestrator) waitForCompletionOrRecorderFailure(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var recorderErr error
	recorderDone := make(chan struct{})
	go func() {
		defer close(recorderDone)
		select {
		case err := <-o.rec.FatalErr():
			recorderErr = err
			cancel()
		case <-runCtx.Done():
		}
	}()

	feedErr := o.feed.WaitUntilComplete(runCtx)
	cancel()
	<-recorderDone

	if recorderErr != nil {
		return recorderErr
	}
	return feedErr
}

func (o *Orchestrator) failRun(ctx context.Context, cause error) {
	if o.rec == nil {
		return
	}
	if err := o.rec.UpdateRunStatus(ctx, recorder.RunStatusFailed, time.Now().UnixNano()); err != nil && o.logger != nil {
		o.logger.Error("orchestrator: failed to record failed run status", zap.Error(err), zap.NamedError("cause", cause))
	}
}

// shutdown tears down every component in the order datafeed, live
// broker or matching engine, strategies, recorder. The recorder goes
// last so its flush-on-shutdown durability guarantee covers
// every event the other components emitted while stopping (spec.md
// §4.7 step 10, §7).
func (o *Orchestrator) shutdown() {
	if o.feed != nil {
		_ = o.feed.Disconnect()
	}
	if o.liveBroker != nil {
		o.liveBroker.Shutdown()
	}
	if o.engine != nil {
		o.engine.Shutdown()
	}
	for _, s := range o.built {
		s.Shutdown()
	}
	if o.rec != nil {
		o.rec.Shutdown()
	}
}

// collectUniverse gathers the union of every plan's symbols, matching
// original_source's Orchestrator._collect_symbols. All strategies in a
// single run share one bar period in this module's strategies.Base, so
// the first plan's bar period is authoritative.
func collectUniverse(plans []StrategyPlan) ([]string, models.BarPeriod) {
	seen := map[string]struct{}{}
	var symbols []string
	var period models.BarPeriod
	for i, p := range plans {
		if i == 0 {
			period = p.Blueprint.BarPeriod
		}
		for _, sym := range p.Blueprint.Symbols {
			if _, ok := seen[sym]; ok {
				continue
			}
			seen[sym] = struct{}{}
			symbols = append(symbols, sym)
		}
	}
	return symbols, period
}

func strategyNames(plans []StrategyPlan) []string {
	names := make([]string, 0, len(plans))
	for _, p := range plans {
		names = append(names, p.Blueprint.Name)
	}
	return names
}

// generateRunID combines a UTC timestamp, every strategy's name, and an
// 8-character uuid suffix (original_source uses timestamp+strategy
// names only; the uuid suffix is added so two runs started within the
// same second never collide on run_id, which is the recorder's primary
// key).
func generateRunID(plans []StrategyPlan) string {
	parts := append(strategyNames(plans), uuid.New().String()[:8])
	return fmt.Sprintf("%s_%s", time.Now().UTC().Format("2006-01-02_15-04-05"), strings.Join(parts, "_"))
}
