package recorder

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

// fillsArrowSchema mirrors the fills table columns recorder clients care
// about for downstream analysis, grounded on
// go-services/services/arrowpipeline/pipeline.go's ConvertToArrow
// schema/builder pattern.
var fillsArrowSchema = arrow.NewSchema([]arrow.Field{
	{Name: "symbol", Type: arrow.BinaryTypes.String},
	{Name: "ts_event", Type: arrow.PrimitiveTypes.Int64},
	{Name: "system_order_id", Type: arrow.BinaryTypes.String},
	{Name: "fill_id", Type: arrow.BinaryTypes.String},
	{Name: "side", Type: arrow.PrimitiveTypes.Int32},
	{Name: "quantity_filled", Type: arrow.PrimitiveTypes.Float64},
	{Name: "fill_price", Type: arrow.PrimitiveTypes.Float64},
	{Name: "commission", Type: arrow.PrimitiveTypes.Float64},
	{Name: "exchange", Type: arrow.BinaryTypes.String},
}, nil)

// fillRow is one row of the fills table, read back through the
// recorder's read-only connection.
type fillRow struct {
	symbol        string
	tsEvent       int64
	systemOrderID string
	fillID        string
	side          int32
	quantity      float64
	fillPrice     float64
	commission    float64
	exchange      string
}

// ExportFillsArrow reads every fill recorded for runID and serializes it
// as one Arrow IPC stream, letting an external analysis process consume
// a run's fills without a ClickHouse driver of its own (spec.md §4.6
// last paragraph's read-only access point).
func (r *RunRecorder) ExportFillsArrow(ctx context.Context, runID string) ([]byte, error) {
	rows, err := r.readConn.Query(ctx,
		`SELECT symbol, ts_event, system_order_id, fill_id, side, quantity_filled, fill_price, commission, exchange
		 FROM fills WHERE run_id = ? ORDER BY ts_event`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("recorder: query fills for export: %w", err)
	}
	defer rows.Close()

	var fills []fillRow
	for rows.Next() {
		var f fillRow
		if err := rows.Scan(&f.symbol, &f.tsEvent, &f.systemOrderID, &f.fillID, &f.side, &f.quantity, &f.fillPrice, &f.commission, &f.exchange); err != nil {
			return nil, fmt.Errorf("recorder: scan fill row: %w", err)
		}
		fills = append(fills, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recorder: iterate fill rows: %w", err)
	}
	return encodeFillsArrow(fills)
}

func encodeFillsArrow(fills []fillRow) ([]byte, error) {
	pool := memory.NewGoAllocator()

	symbolB := array.NewStringBuilder(pool)
	tsEventB := array.NewInt64Builder(pool)
	orderIDB := array.NewStringBuilder(pool)
	fillIDB := array.NewStringBuilder(pool)
	sideB := array.NewInt32Builder(pool)
	quantityB := array.NewFloat64Builder(pool)
	priceB := array.NewFloat64Builder(pool)
	commissionB := array.NewFloat64Builder(pool)
	exchangeB := array.NewStringBuilder(pool)

	for _, f := range fills {
		symbolB.Append(f.symbol)
		tsEventB.Append(f.tsEvent)
		orderIDB.Append(f.systemOrderID)
		fillIDB.Append(f.fillID)
		sideB.Append(f.side)
		quantityB.Append(f.quantity)
		priceB.Append(f.fillPrice)
		commissionB.Append(f.commission)
		exchangeB.Append(f.exchange)
	}

	symbolArr := symbolB.NewStringArray()
	tsEventArr := tsEventB.NewInt64Array()
	orderIDArr := orderIDB.NewStringArray()
	fillIDArr := fillIDB.NewStringArray()
	sideArr := sideB.NewInt32Array()
	quantityArr := quantityB.NewFloat64Array()
	priceArr := priceB.NewFloat64Array()
	commissionArr := commissionB.NewFloat64Array()
	exchangeArr := exchangeB.NewStringArray()

	record := array.NewRecord(fillsArrowSchema, []arrow.Array{
		symbolArr, tsEventArr, orderIDArr, fillIDArr, sideArr, quantityArr, priceArr, commissionArr, exchangeArr,
	}, int64(len(fills)))
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(fillsArrowSchema))
	if err := writer.Write(record); err != nil {
		return nil, fmt.Errorf("recorder: write arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("recorder: close arrow writer: %w", err)
	}
	return buf.Bytes(), nil
}
