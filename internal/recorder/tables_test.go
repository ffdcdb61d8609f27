package recorder

import (
	"errors"
	"testing"
)

func TestRecordFlushFailureEscalatesAfterConsecutiveThreshold(t *testing.T) {
	r := &RunRecorder{fatal: make(chan error, 1)}
	errBoom := errors.New("boom")

	for i := 1; i < maxConsecutiveFlushFailures; i++ {
		r.recordFlushFailure("bars", "send batch", errBoom)
		select {
		case err := <-r.FatalErr():
			t.Fatalf("FatalErr fired after %d failures (want %d), err = %v", i, maxConsecutiveFlushFailures, err)
		default:
		}
	}

	r.recordFlushFailure("bars", "send batch", errBoom)
	select {
	case err := <-r.FatalErr():
		if err == nil {
			t.Fatal("FatalErr sent a nil error")
		}
	default:
		t.Fatalf("FatalErr did not fire after %d consecutive failures", maxConsecutiveFlushFailures)
	}
}

func TestRecordFlushFailureResetsOnSuccessfulFlush(t *testing.T) {
	r := &RunRecorder{fatal: make(chan error, 1), buffers: newBuffers()}
	errBoom := errors.New("boom")

	r.recordFlushFailure("bars", "send batch", errBoom)
	r.consecutiveFailures = 0 // simulate the reset a successful flush performs

	for i := 0; i < maxConsecutiveFlushFailures-1; i++ {
		r.recordFlushFailure("bars", "send batch", errBoom)
	}
	select {
	case err := <-r.FatalErr():
		t.Fatalf("FatalErr fired early after a reset, err = %v", err)
	default:
	}
}

func TestInsertQueriesHaveOnePlaceholderPerColumn(t *testing.T) {
	for table, columns := range tableColumns {
		query, ok := insertQueries[table]
		if !ok {
			t.Fatalf("no insertQueries entry for table %q", table)
		}
		wantPlaceholders := len(columns)
		gotPlaceholders := 0
		for _, c := range query {
			if c == '?' {
				gotPlaceholders++
			}
		}
		if gotPlaceholders != wantPlaceholders {
			t.Errorf("table %q: query has %d placeholders, want %d (one per column)", table, gotPlaceholders, wantPlaceholders)
		}
	}
}

func TestInsertQueriesNameEveryColumn(t *testing.T) {
	for table, columns := range tableColumns {
		query := insertQueries[table]
		for _, col := range columns {
			if !containsWord(query, col) {
				t.Errorf("table %q: query %q missing column %q", table, query, col)
			}
		}
	}
}

func TestEveryTableLeadsWithRunID(t *testing.T) {
	for table, columns := range tableColumns {
		if len(columns) == 0 || columns[0] != "run_id" {
			t.Errorf("table %q: first column = %v, want run_id", table, columns)
		}
	}
}

func TestNewBuffersCoversEveryTable(t *testing.T) {
	buffers := newBuffers()
	for table := range tableColumns {
		if _, ok := buffers[table]; !ok {
			t.Errorf("newBuffers() missing entry for table %q", table)
		}
	}
	for table := range buffers {
		if _, ok := tableColumns[table]; !ok {
			t.Errorf("newBuffers() has extra table %q not in tableColumns", table)
		}
	}
}

func containsWord(haystack, word string) bool {
	for i := 0; i+len(word) <= len(haystack); i++ {
		if haystack[i:i+len(word)] == word {
			return true
		}
	}
	return false
}
