// Package datafeed implements the simulated, replay-from-storage
// market data feed (spec.md §4.1 "Datafeed"). Structure is adapted from
// original_source/src/onesecondtrader/datafeeds/simulated.py, with the
// backing store switched from SQLite to ClickHouse (DESIGN.md Open
// Question 6) and queried through the teacher's native
// clickhouse-go/v2 driver (go-services/cmd/indicator_parity/main.go's
// conn.Query/rows.Scan pattern).
package datafeed

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2"
	chdriver "github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/messaging"
	"github.com/onesecondtrader/backtest-core/internal/models"
)

// subscriptionKey identifies one (symbol, bar_period) subscription.
type subscriptionKey struct {
	symbol    string
	barPeriod models.BarPeriod
}

// Options configures a SimulatedDatafeed.
type Options struct {
	Addr            []string
	Database        string
	Username        string
	Password        string
	PublisherName   string
	Dataset         string
	SymbolType      string
	PriceScale      float64 // defaults to 1e9 if zero, matching original_source
	StartTsEventNs  *int64
	EndTsEventNs    *int64
}

// SimulatedDatafeed replays historical OHLCV bars from ClickHouse,
// resolving symbols via time-bounded symbology mappings, and publishes
// them in ts_event order, calling WaitUntilSystemIdle once per distinct
// ts_event group (spec.md §4.1, §5).
type SimulatedDatafeed struct {
	bus  *messaging.EventBus
	opts Options
	conn chdriver.Conn

	mu            sync.Mutex
	subscriptions map[subscriptionKey]struct{}

	publisherID int64
}

// New constructs a SimulatedDatafeed. Connect must be called before
// Subscribe/WaitUntilComplete.
func New(bus *messaging.EventBus, opts Options) *SimulatedDatafeed {
	if opts.PriceScale == 0 {
		opts.PriceScale = 1e9
	}
	return &SimulatedDatafeed{
		bus:           bus,
		opts:          opts,
		subscriptions: make(map[subscriptionKey]struct{}),
	}
}

// Connect opens the ClickHouse connection and resolves the publisher
// (spec.md §4.1). If already connected, returns nil immediately.
func (d *SimulatedDatafeed) Connect(ctx context.Context) error {
	if d.conn != nil {
		return nil
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: d.opts.Addr,
		Auth: clickhouse.Auth{
			Database: d.opts.Database,
			Username: d.opts.Username,
			Password: d.opts.Password,
		},
	})
	if err != nil {
		return err
	}
	var publisherID int64
	err = conn.QueryRow(ctx,
		`SELECT publisher_id FROM publishers WHERE name = ? AND dataset = ?`,
		d.opts.PublisherName, d.opts.Dataset,
	).Scan(&publisherID)
	if err != nil {
		return fmt.Errorf("datafeed: resolve publisher %s/%s: %w", d.opts.PublisherName, d.opts.Dataset, err)
	}
	d.conn = conn
	d.publisherID = publisherID
	return nil
}

// Disconnect closes the ClickHouse connection. If not connected,
// returns nil immediately.
func (d *SimulatedDatafeed) Disconnect() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// Subscribe registers symbols for bar delivery at the given period.
func (d *SimulatedDatafeed) Subscribe(symbols []string, barPeriod models.BarPeriod) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range symbols {
		d.subscriptions[subscriptionKey{s, barPeriod}] = struct{}{}
	}
}

// Unsubscribe removes symbols from bar delivery at the given period.
func (d *SimulatedDatafeed) Unsubscribe(symbols []string, barPeriod models.BarPeriod) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range symbols {
		delete(d.subscriptions, subscriptionKey{s, barPeriod})
	}
}

type rawBar struct {
	symbol    string
	rtype     int
	tsEvent   int64
	open      float64
	high      float64
	low       float64
	close     float64
	volume    float64
}

// WaitUntilComplete streams every subscribed bar in ts_event order and
// blocks until delivery is complete. Bars sharing a ts_event are
// published as one group, followed by exactly one
// WaitUntilSystemIdle call (spec.md §4.1, §5's replay barrier
// protocol), grounded on simulated.py's itertools.groupby loop. Unlike
// the original, which spins a background thread purely to let
// disconnect() interrupt it, this call runs synchronously: the Go
// caller already controls cancellation via ctx.
func (d *SimulatedDatafeed) WaitUntilComplete(ctx context.Context) error {
	d.mu.Lock()
	subs := make([]subscriptionKey, 0, len(d.subscriptions))
	for k := range d.subscriptions {
		subs = append(subs, k)
	}
	d.mu.Unlock()
	if len(subs) == 0 {
		return nil
	}
	if d.conn == nil {
		return fmt.Errorf("datafeed: not connected")
	}

	symbolSet := map[string]struct{}{}
	rtypeSet := map[int]struct{}{}
	subscriptionSet := map[subscriptionKey]struct{}{}
	for _, s := range subs {
		symbolSet[s.symbol] = struct{}{}
		rtypeSet[int(s.barPeriod)] = struct{}{}
		subscriptionSet[s] = struct{}{}
	}
	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	rtypes := make([]int, 0, len(rtypeSet))
	for r := range rtypeSet {
		rtypes = append(rtypes, r)
	}
	sort.Ints(rtypes)

	query, args := d.buildQuery(symbols, rtypes)
	rows, err := d.conn.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("datafeed: query bars: %w", err)
	}
	defer rows.Close()

	var group []rawBar
	var groupTs int64
	haveGroup := false

	flush := func() error {
		if !haveGroup {
			return nil
		}
		for _, row := range group {
			bp := models.BarPeriod(row.rtype)
			if _, subscribed := subscriptionSet[subscriptionKey{row.symbol, bp}]; !subscribed {
				continue
			}
			d.bus.Publish(events.BarReceived{
				Base:      events.NewBase(row.tsEvent, row.tsEvent),
				Symbol:    row.symbol,
				BarPeriod: bp,
				Open:      row.open / d.opts.PriceScale,
				High:      row.high / d.opts.PriceScale,
				Low:       row.low / d.opts.PriceScale,
				Close:     row.close / d.opts.PriceScale,
				Volume:    row.volume,
			})
		}
		d.bus.WaitUntilSystemIdle()
		group = group[:0]
		return nil
	}

	for rows.Next() {
		var r rawBar
		if err := rows.Scan(&r.symbol, &r.rtype, &r.tsEvent, &r.open, &r.high, &r.low, &r.close, &r.volume); err != nil {
			return fmt.Errorf("datafeed: scan bar row: %w", err)
		}
		if haveGroup && r.tsEvent != groupTs {
			if err := flush(); err != nil {
				return err
			}
		}
		groupTs = r.tsEvent
		haveGroup = true
		group = append(group, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("datafeed: iterate bar rows: %w", err)
	}
	return flush()
}

func (d *SimulatedDatafeed) buildQuery(symbols []string, rtypes []int) (string, []any) {
	symbolPlaceholders := placeholders(len(symbols))
	rtypePlaceholders := placeholders(len(rtypes))

	query := fmt.Sprintf(`
		SELECT s.symbol, o.rtype, o.ts_event, o.open, o.high, o.low, o.close, o.volume
		FROM ohlcv o
		INNER JOIN instruments i ON i.instrument_id = o.instrument_id
		INNER JOIN symbology s
			ON s.publisher_ref = i.publisher_ref
			AND s.source_instrument_id = i.source_instrument_id
			AND toDate(o.ts_event / 1000000000) >= s.start_date
			AND toDate(o.ts_event / 1000000000) < s.end_date
		WHERE i.publisher_ref = ?
			AND s.symbol_type = ?
			AND s.symbol IN (%s)
			AND o.rtype IN (%s)
			%s
			%s
		ORDER BY o.ts_event, s.symbol`,
		symbolPlaceholders, rtypePlaceholders,
		tsFilter("o.ts_event >= ?", d.opts.StartTsEventNs),
		tsFilter("o.ts_event <= ?", d.opts.EndTsEventNs),
	)

	args := []any{d.publisherID, d.opts.SymbolType}
	for _, s := range symbols {
		args = append(args, s)
	}
	for _, r := range rtypes {
		args = append(args, r)
	}
	if d.opts.StartTsEventNs != nil {
		args = append(args, *d.opts.StartTsEventNs)
	}
	if d.opts.EndTsEventNs != nil {
		args = append(args, *d.opts.EndTsEventNs)
	}
	return query, args
}

func tsFilter(clause string, bound *int64) string {
	if bound == nil {
		return ""
	}
	return "AND " + clause
}

func placeholders(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ", "
		}
		out += "?"
	}
	return out
}
