package recorder

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
)

func TestEncodeFillsArrowRoundTrips(t *testing.T) {
	fills := []fillRow{
		{symbol: "AAPL", tsEvent: 100, systemOrderID: "ord-1", fillID: "fill-1", side: 1, quantity: 10, fillPrice: 101.5, commission: 1.25, exchange: "SIM"},
		{symbol: "MSFT", tsEvent: 200, systemOrderID: "ord-2", fillID: "fill-2", side: -1, quantity: 5, fillPrice: 305.25, commission: 0.75, exchange: "SIM"},
	}

	encoded, err := encodeFillsArrow(fills)
	if err != nil {
		t.Fatalf("encodeFillsArrow() error = %v", err)
	}
	if len(encoded) == 0 {
		t.Fatal("encodeFillsArrow() returned no bytes")
	}

	reader, err := ipc.NewReader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ipc.NewReader() error = %v", err)
	}
	defer reader.Release()

	if !reader.Next() {
		t.Fatal("expected one record batch, got none")
	}
	record := reader.Record()
	if record.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", record.NumRows())
	}

	symbols := record.Column(0).(*array.String)
	if symbols.Value(0) != "AAPL" || symbols.Value(1) != "MSFT" {
		t.Fatalf("symbol column = [%s %s], want [AAPL MSFT]", symbols.Value(0), symbols.Value(1))
	}

	prices := record.Column(6).(*array.Float64)
	if prices.Value(0) != 101.5 || prices.Value(1) != 305.25 {
		t.Fatalf("fill_price column = [%v %v], want [101.5 305.25]", prices.Value(0), prices.Value(1))
	}

	if reader.Next() {
		t.Fatal("expected exactly one record batch")
	}
}

func TestEncodeFillsArrowHandlesEmptyInput(t *testing.T) {
	encoded, err := encodeFillsArrow(nil)
	if err != nil {
		t.Fatalf("encodeFillsArrow(nil) error = %v", err)
	}
	if len(encoded) == 0 {
		t.Fatal("encodeFillsArrow(nil) should still produce a valid empty IPC stream")
	}

	reader, err := ipc.NewReader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ipc.NewReader() error = %v", err)
	}
	defer reader.Release()
	if reader.Next() {
		if record := reader.Record(); record.NumRows() != 0 {
			t.Fatalf("NumRows() = %d, want 0 for empty input", record.NumRows())
		}
	}
}
