package recorder

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/onesecondtrader/backtest-core/internal/events"
)

// Each buffer* method appends a tuple-like row to its table's buffer;
// each flush* method drains that buffer via a single PrepareBatch/
// Append/Send round trip, grounded on go-services/cmd/data_ingest/
// main.go's insertBatch pattern. run_id is prepended to every row
// (spec.md §3 "All persisted events carry the run_id foreign key").

func (r *RunRecorder) bufferBarReceived(e events.BarReceived) {
	r.appendAndMaybeFlush(context.Background(), "bars", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.Symbol, int(e.BarPeriod),
		e.Open, e.High, e.Low, e.Close, e.Volume,
	})
}

func (r *RunRecorder) bufferBarProcessed(e events.BarProcessed) {
	indicatorsJSON, _ := json.Marshal(e.Indicators)
	r.appendAndMaybeFlush(context.Background(), "bars_processed", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.Symbol, int(e.BarPeriod),
		e.Open, e.High, e.Low, e.Close, e.Volume, string(indicatorsJSON),
	})
}

func (r *RunRecorder) bufferOrderSubmission(e events.OrderSubmissionRequest) {
	r.appendAndMaybeFlush(context.Background(), "order_submissions", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.SystemOrderID, e.Symbol,
		int(e.OrderType), int(e.Side), e.Quantity, derefOrZero(e.LimitPrice), derefOrZero(e.StopPrice),
		int(e.Action), e.Signal,
	})
}

func (r *RunRecorder) bufferOrderCancellation(e events.OrderCancellationRequest) {
	r.appendAndMaybeFlush(context.Background(), "order_cancellations", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.SystemOrderID, e.Symbol,
	})
}

func (r *RunRecorder) bufferOrderModification(e events.OrderModificationRequest) {
	r.appendAndMaybeFlush(context.Background(), "order_modifications", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.SystemOrderID, e.Symbol,
		derefOrZero(e.Quantity), derefOrZero(e.LimitPrice), derefOrZero(e.StopPrice),
	})
}

func (r *RunRecorder) bufferOrderAccepted(e events.OrderAccepted) {
	brokerOrderID := ""
	if e.BrokerOrderID != nil {
		brokerOrderID = *e.BrokerOrderID
	}
	r.appendAndMaybeFlush(context.Background(), "orders_accepted", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.SystemOrderID, e.TsBroker, brokerOrderID,
	})
}

func (r *RunRecorder) bufferOrderRejected(e events.OrderRejected) {
	r.appendAndMaybeFlush(context.Background(), "orders_rejected", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.SystemOrderID, e.TsBroker,
		int(e.RejectionReason), e.RejectionMessage,
	})
}

func (r *RunRecorder) bufferCancellationAccepted(e events.CancellationAccepted) {
	r.appendAndMaybeFlush(context.Background(), "cancellations_accepted", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.SystemOrderID, e.TsBroker,
	})
}

func (r *RunRecorder) bufferCancellationRejected(e events.CancellationRejected) {
	r.appendAndMaybeFlush(context.Background(), "cancellations_rejected", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.SystemOrderID, e.TsBroker,
		int(e.RejectionReason), e.RejectionMessage,
	})
}

func (r *RunRecorder) bufferModificationAccepted(e events.ModificationAccepted) {
	r.appendAndMaybeFlush(context.Background(), "modifications_accepted", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.SystemOrderID, e.TsBroker,
		derefOrZero(e.Quantity), derefOrZero(e.LimitPrice), derefOrZero(e.StopPrice),
	})
}

func (r *RunRecorder) bufferModificationRejected(e events.ModificationRejected) {
	r.appendAndMaybeFlush(context.Background(), "modifications_rejected", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.SystemOrderID, e.TsBroker,
		int(e.RejectionReason), e.RejectionMessage,
	})
}

func (r *RunRecorder) bufferFill(e events.FillEvent) {
	r.appendAndMaybeFlush(context.Background(), "fills", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.SystemOrderID, e.FillID, e.Symbol,
		int(e.Side), e.QuantityFilled, e.FillPrice, e.Commission, e.Exchange, e.TsBroker,
	})
}

func (r *RunRecorder) bufferExpiration(e events.OrderExpired) {
	r.appendAndMaybeFlush(context.Background(), "expirations", []any{
		r.runID, e.TsEvent(), e.TsCreated(), e.SystemOrderID, e.Symbol, e.TsBroker,
	})
}

func derefOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// tableColumns lists, per table, the columns in the exact order the
// buffer* methods above build their []any rows in. run_id leads every
// table (spec.md §3 "All persisted events carry the run_id foreign
// key").
var tableColumns = map[string][]string{
	"bars":                    {"run_id", "ts_event", "ts_created", "symbol", "bar_period", "open", "high", "low", "close", "volume"},
	"bars_processed":          {"run_id", "ts_event", "ts_created", "symbol", "bar_period", "open", "high", "low", "close", "volume", "indicators"},
	"order_submissions":       {"run_id", "ts_event", "ts_created", "system_order_id", "symbol", "order_type", "side", "quantity", "limit_price", "stop_price", "action", "signal"},
	"order_cancellations":     {"run_id", "ts_event", "ts_created", "system_order_id", "symbol"},
	"order_modifications":     {"run_id", "ts_event", "ts_created", "system_order_id", "symbol", "quantity", "limit_price", "stop_price"},
	"orders_accepted":         {"run_id", "ts_event", "ts_created", "system_order_id", "ts_broker", "broker_order_id"},
	"orders_rejected":         {"run_id", "ts_event", "ts_created", "system_order_id", "ts_broker", "rejection_reason", "rejection_message"},
	"cancellations_accepted":  {"run_id", "ts_event", "ts_created", "system_order_id", "ts_broker"},
	"cancellations_rejected":  {"run_id", "ts_event", "ts_created", "system_order_id", "ts_broker", "rejection_reason", "rejection_message"},
	"modifications_accepted":  {"run_id", "ts_event", "ts_created", "system_order_id", "ts_broker", "quantity", "limit_price", "stop_price"},
	"modifications_rejected":  {"run_id", "ts_event", "ts_created", "system_order_id", "ts_broker", "rejection_reason", "rejection_message"},
	"fills":                   {"run_id", "ts_event", "ts_created", "system_order_id", "fill_id", "symbol", "side", "quantity_filled", "fill_price", "commission", "exchange", "ts_broker"},
	"expirations":             {"run_id", "ts_event", "ts_created", "system_order_id", "symbol", "ts_broker"},
}

// insertQueries is built once from tableColumns: "INSERT INTO t (a, b)
// VALUES (?, ?)", matching go-services/cmd/data_ingest/main.go's
// insertBatch query shape.
var insertQueries = buildInsertQueries(tableColumns)

func buildInsertQueries(cols map[string][]string) map[string]string {
	queries := make(map[string]string, len(cols))
	for table, columns := range cols {
		placeholders := ""
		for i := range columns {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += "?"
		}
		queries[table] = "INSERT INTO " + table + " (" + joinColumns(columns) + ") VALUES (" + placeholders + ")"
	}
	return queries
}

func joinColumns(columns []string) string {
	out := ""
	for i, c := range columns {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

// flush drains table's buffer via PrepareBatch/Append/Send, grounded on
// go-services/cmd/data_ingest/main.go's insertBatch. A failure leaves
// the buffer intact (the next appendAndMaybeFlush or flushAll call
// retries it) and is tracked by recordFlushFailure, which escalates to
// a Fatal run error after maxConsecutiveFlushFailures in a row.
func (r *RunRecorder) flush(ctx context.Context, table string) {
	rows := r.buffers[table]
	if len(rows) == 0 {
		return
	}
	query, ok := insertQueries[table]
	if !ok {
		return
	}
	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		r.recordFlushFailure(table, "prepare batch", err)
		return
	}
	for _, row := range rows {
		args := row.([]any)
		if err := batch.Append(args...); err != nil {
			r.recordFlushFailure(table, "append row", err)
			return
		}
	}
	if err := batch.Send(); err != nil {
		r.recordFlushFailure(table, "send batch", err)
		return
	}
	r.buffers[table] = nil
	r.consecutiveFailures = 0
}

// recordFlushFailure logs a single flush failure and, once
// maxConsecutiveFlushFailures have happened back to back with no
// intervening successful flush, pushes a fatal error onto r.fatal
// (non-blocking: the channel only ever needs to carry the first one).
func (r *RunRecorder) recordFlushFailure(table, step string, err error) {
	if r.logger != nil {
		r.logger.Error("recorder: flush failed", zap.String("table", table), zap.String("step", step), zap.Error(err))
	}
	r.consecutiveFailures++
	if r.consecutiveFailures < maxConsecutiveFlushFailures {
		return
	}
	fatalErr := fmt.Errorf("recorder: %d consecutive flush failures, last on table %q (%s): %w", r.consecutiveFailures, table, step, err)
	select {
	case r.fatal <- fatalErr:
	default:
	}
}
