// Package recorder implements the run recorder: a subscriber to every
// event variant that persists it durably, grouped by run_id, using
// buffered batched writes against ClickHouse (spec.md §4.6). Buffer
// structure grounded on
// original_source/orchestrator/run_recorder.py; the storage layer is
// grounded on the teacher's native clickhouse-go/v2 driver usage in
// go-services/cmd/data_ingest/main.go (see SPEC_FULL.md §4.6,
// DESIGN.md Open Question 6).
package recorder

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	chdriver "github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/messaging"
)

// BatchSize is the per-table buffer threshold at which a flush is
// triggered (spec.md §4.6: "recommended 1,000").
const BatchSize = 1000

// maxConsecutiveFlushFailures is the number of back-to-back flush
// failures, across any table, that escalate to a Fatal run error
// (spec.md §7: "repeated exceptions from the recorder itself"). One
// failing table does not abort the run; three in a row without an
// intervening success does.
const maxConsecutiveFlushFailures = 3

// RunStatus mirrors spec.md §3's runs.status enum.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Options configures a RunRecorder.
type Options struct {
	Addr     []string
	Database string
	Username string
	Password string
	RunID    string
	Name     string
	Config   map[string]any
	Metadata map[string]any
	Logger   *zap.Logger
}

// RunRecorder is a subscriber to all 13 event variants plus the runs
// table lifecycle. Buffers are mutated ONLY by its own worker goroutine
// (spec.md §5), so no lock is needed around them.
type RunRecorder struct {
	conn      chdriver.Conn
	readConn  chdriver.Conn // second, read-only connection (spec.md §4.6 last paragraph)
	worker    *messaging.Worker
	runID     string
	logger    *zap.Logger

	buffers             map[string][]any
	consecutiveFailures int
	fatal               chan error
}

// New connects to ClickHouse, registers the run, and starts the
// recorder's worker. The caller must Subscribe the returned Subscriber
// to all 13 event tags BEFORE constructing any other component (spec.md
// §4.7 step 3).
func New(ctx context.Context, opts Options) (*RunRecorder, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: opts.Addr,
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, err
	}
	readConn, err := clickhouse.Open(&clickhouse.Options{
		Addr: opts.Addr,
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, err
	}

	r := &RunRecorder{
		conn:     conn,
		readConn: readConn,
		runID:    opts.RunID,
		logger:   opts.Logger,
		buffers:  newBuffers(),
		fatal:    make(chan error, 1),
	}
	if err := r.registerRun(ctx, opts); err != nil {
		return nil, err
	}
	r.worker = messaging.NewWorker(r)
	return r, nil
}

// Subscriber returns the messaging.Subscriber the orchestrator
// registers for every event tag.
func (r *RunRecorder) Subscriber() messaging.Subscriber { return r.worker }

// FatalErr reports at most one error, once maxConsecutiveFlushFailures
// consecutive flush failures have occurred. The orchestrator selects on
// this channel alongside the datafeed's completion signal so that
// repeated recorder failures escalate to a Fatal run error (spec.md
// §7) instead of silently dropping data for the rest of the run.
func (r *RunRecorder) FatalErr() <-chan error { return r.fatal }

// ReadConn exposes the second, read-only connection external processes
// (the dashboard) may query concurrently (spec.md §4.6).
func (r *RunRecorder) ReadConn() chdriver.Conn { return r.readConn }

// Shutdown stops the recorder's worker, which flushes all buffers and
// closes both connections via Cleanup.
func (r *RunRecorder) Shutdown() { r.worker.Shutdown() }

func newBuffers() map[string][]any {
	return map[string][]any{
		"bars":                     nil,
		"bars_processed":           nil,
		"order_submissions":        nil,
		"order_cancellations":      nil,
		"order_modifications":      nil,
		"orders_accepted":          nil,
		"orders_rejected":          nil,
		"cancellations_accepted":   nil,
		"cancellations_rejected":   nil,
		"modifications_accepted":   nil,
		"modifications_rejected":   nil,
		"fills":                    nil,
		"expirations":              nil,
	}
}

func (r *RunRecorder) registerRun(ctx context.Context, opts Options) error {
	cfgJSON, _ := json.Marshal(opts.Config)
	metaJSON, _ := json.Marshal(opts.Metadata)
	return r.conn.Exec(ctx, `
		INSERT INTO runs (run_id, name, ts_start, ts_end, status, config, metadata)
		VALUES (?, ?, ?, NULL, ?, ?, ?)`,
		opts.RunID, opts.Name, time.Now().UnixNano(), string(RunStatusRunning), string(cfgJSON), string(metaJSON),
	)
}

// UpdateRunStatus writes the terminal status transition for this run,
// with tsEnd in nanoseconds since epoch (spec.md §4.7 step 10). Because
// the recorder shuts down last, this row is guaranteed durable before
// the run is considered torn down (spec.md §7).
func (r *RunRecorder) UpdateRunStatus(ctx context.Context, status RunStatus, tsEnd int64) error {
	return r.conn.Exec(ctx, `ALTER TABLE runs UPDATE ts_end = ?, status = ? WHERE run_id = ?`,
		tsEnd, string(status), r.runID)
}

// ---- messaging.Handler ----

func (r *RunRecorder) OnEvent(e events.Event) {
	switch ev := e.(type) {
	case events.BarReceived:
		r.bufferBarReceived(ev)
	case events.BarProcessed:
		r.bufferBarProcessed(ev)
	case events.OrderSubmissionRequest:
		r.bufferOrderSubmission(ev)
	case events.OrderCancellationRequest:
		r.bufferOrderCancellation(ev)
	case events.OrderModificationRequest:
		r.bufferOrderModification(ev)
	case events.OrderAccepted:
		r.bufferOrderAccepted(ev)
	case events.OrderRejected:
		r.bufferOrderRejected(ev)
	case events.CancellationAccepted:
		r.bufferCancellationAccepted(ev)
	case events.CancellationRejected:
		r.bufferCancellationRejected(ev)
	case events.ModificationAccepted:
		r.bufferModificationAccepted(ev)
	case events.ModificationRejected:
		r.bufferModificationRejected(ev)
	case events.FillEvent:
		r.bufferFill(ev)
	case events.OrderExpired:
		r.bufferExpiration(ev)
	}
}

func (r *RunRecorder) OnException(err any, e events.Event) {
	// Matches original_source's _on_exception: the recorder itself must
	// never abort the run over a single malformed record. Escalation to
	// a Fatal run error happens separately, through recordFlushFailure/
	// FatalErr, when flush (not a handler panic) fails repeatedly.
	if r.logger != nil {
		r.logger.Error("recorder handler panicked", zap.Any("event", e), zap.Any("error", err))
	}
}

func (r *RunRecorder) Cleanup() {
	ctx := context.Background()
	r.flushAll(ctx)
	_ = r.conn.Close()
	_ = r.readConn.Close()
}

func (r *RunRecorder) flushAll(ctx context.Context) {
	for table := range r.buffers {
		r.flush(ctx, table)
	}
}

// appendAndMaybeFlush appends row to table's buffer and flushes it once
// BatchSize is reached (spec.md §4.6).
func (r *RunRecorder) appendAndMaybeFlush(ctx context.Context, table string, row any) {
	r.buffers[table] = append(r.buffers[table], row)
	if len(r.buffers[table]) >= BatchSize {
		r.flush(ctx, table)
	}
}
