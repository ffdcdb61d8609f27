// Package testdata loads OHLCV fixture files for tests that need a
// realistic bar sequence without a ClickHouse connection (spec.md §8's
// Scenarios A-F). BOM detection and CSV parsing are grounded on
// cmd/run_ema_atr/main.go's UTF-16-BOM peek and
// go-services/strategies/ema_atr_strategy.go's LoadCSV, adapted to
// produce events.BarReceived instead of a strategy's own Bar struct.
package testdata

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/models"
)

// LoadBars reads a CSV fixture of the form
// "ts_event,open,high,low,close,volume" (optional header row, optional
// UTF-16 BOM; a missing or unparsable volume reads as 0) and returns one events.BarReceived per row, sorted by
// ts_event ascending. symbol and barPeriod are stamped onto every row
// since the fixture format carries neither.
func LoadBars(path, symbol string, barPeriod models.BarPeriod) ([]events.BarReceived, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("testdata: open %s: %w", path, err)
	}
	defer f.Close()

	reader, err := decodeReader(f)
	if err != nil {
		return nil, fmt.Errorf("testdata: %s: %w", path, err)
	}

	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var bars []events.BarReceived
	lineIndex := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("testdata: %s: line %d: %w", path, lineIndex+1, err)
		}
		row := lineIndex
		lineIndex++
		if len(rec) < 5 {
			continue
		}
		if row == 0 && (strings.EqualFold(rec[0], "ts_event") || strings.EqualFold(rec[0], "timestamp")) {
			continue
		}

		bar, ok := parseBar(rec, symbol, barPeriod)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}

	for i := 1; i < len(bars); i++ {
		for j := i; j > 0 && bars[j-1].TsEvent() > bars[j].TsEvent(); j-- {
			bars[j-1], bars[j] = bars[j], bars[j-1]
		}
	}
	return bars, nil
}

func decodeReader(f *os.File) (io.Reader, error) {
	br := bufio.NewReader(f)
	head, _ := br.Peek(2)
	if len(head) >= 2 && ((head[0] == 0xFF && head[1] == 0xFE) || (head[0] == 0xFE && head[1] == 0xFF)) {
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
		return transform.NewReader(f, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()), nil
	}
	return br, nil
}

func parseBar(rec []string, symbol string, barPeriod models.BarPeriod) (events.BarReceived, bool) {
	tsStr := strings.TrimPrefix(strings.TrimSpace(rec[0]), "\xef\xbb\xbf")
	tsEvent, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return events.BarReceived{}, false
	}
	open, err1 := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	high, err2 := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
	low, err3 := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
	closePx, err4 := strconv.ParseFloat(strings.TrimSpace(rec[4]), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return events.BarReceived{}, false
	}
	volume := 0.0
	if len(rec) > 5 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(rec[5]), 64); err == nil {
			volume = v
		}
	}
	return events.BarReceived{
		Base:      events.NewBase(tsEvent, tsEvent),
		Symbol:    symbol,
		BarPeriod: barPeriod,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePx,
		Volume:    volume,
	}, true
}
