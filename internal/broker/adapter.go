// Package broker defines the live-broker-adapter interface (spec.md
// §6: "live-broker adapters: the interface is specified; no concrete
// implementation is required"). A live adapter is a drop-in
// replacement for internal/matching's simulated engine: it subscribes
// to the three request tags and BarReceived, and must publish the same
// response/outcome events the simulated engine does, over a gRPC
// connection to an external broker process. Shape grounded on
// go-services/cmd/server/main.go's grpc.NewServer()/grpc.Dial wiring,
// using proto.LiveBrokerServiceServer as the wire contract.
package broker

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/onesecondtrader/backtest-core/internal/events"
	"github.com/onesecondtrader/backtest-core/internal/messaging"
	"github.com/onesecondtrader/backtest-core/internal/models"
	brokerproto "github.com/onesecondtrader/backtest-core/proto"
)

// Adapter is the contract any live broker/data-source integration
// satisfies so the orchestrator can substitute it for
// internal/matching.Engine and internal/datafeed.SimulatedDatafeed
// without changing strategy code (spec.md §6 "Strategies have no other
// dependency").
type Adapter interface {
	Subscriber() messaging.Subscriber
	Shutdown()
}

// GRPCAdapter is a thin client-side adapter that dials an external
// LiveBrokerServiceServer and translates each request event into a
// brokerproto.OrderRequest. It does not send those requests over the
// connection and publishes no response or outcome events (see forward).
// It is wired into the same Subscribe contract as
// internal/matching.Engine, so the orchestrator can swap one for the
// other. No server-side implementation ships with this module.
type GRPCAdapter struct {
	bus    *messaging.EventBus
	worker *messaging.Worker
	conn   *grpc.ClientConn
}

// Dial connects to a live broker process at target (e.g.
// "broker.internal:7777") using insecure transport credentials, matching
// the teacher's in-cluster grpc.Dial usage (TLS termination happens at
// the mesh/proxy layer, not in application code).
func Dial(bus *messaging.EventBus, target string) (*GRPCAdapter, error) {
	conn, err := grpc.Dial(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("broker: dial %s: %w", target, err)
	}
	a := &GRPCAdapter{bus: bus, conn: conn}
	a.worker = messaging.NewWorker(a)
	return a, nil
}

func (a *GRPCAdapter) Subscriber() messaging.Subscriber { return a.worker }

func (a *GRPCAdapter) Shutdown() {
	a.worker.Shutdown()
	_ = a.conn.Close()
}

func (a *GRPCAdapter) OnEvent(e events.Event) {
	switch ev := e.(type) {
	case events.OrderSubmissionRequest:
		a.forward(toOrderRequest(brokerproto.OrderRequestKind_SUBMIT, ev.SystemOrderID, ev.Symbol, ev.TsEvent(), int32(ev.OrderType), int32(ev.Side), ev.Quantity, ev.LimitPrice, ev.StopPrice))
	case events.OrderCancellationRequest:
		a.forward(&brokerproto.OrderRequest{Kind: brokerproto.OrderRequestKind_CANCEL, SystemOrderId: ev.SystemOrderID, Symbol: ev.Symbol, TsEvent: ev.TsEvent()})
	case events.OrderModificationRequest:
		req := toOrderRequest(brokerproto.OrderRequestKind_MODIFY, ev.SystemOrderID, ev.Symbol, ev.TsEvent(), 0, 0, 0, ev.LimitPrice, ev.StopPrice)
		if ev.Quantity != nil {
			req.Quantity = *ev.Quantity
		}
		a.forward(req)
	}
}

func toOrderRequest(kind brokerproto.OrderRequestKind, id, symbol string, tsEvent int64, orderType, side int32, qty float64, limitPrice, stopPrice *float64) *brokerproto.OrderRequest {
	return &brokerproto.OrderRequest{
		Kind: kind, SystemOrderId: id, Symbol: symbol, TsEvent: tsEvent,
		OrderType: orderType, Side: side, Quantity: qty,
		LimitPrice: limitPrice, StopPrice: stopPrice,
	}
}

// forward receives the translated request and discards it: no RPC is
// made over a.conn and no response event is published on the bus. This
// module defines the contract only (spec.md §6).
func (a *GRPCAdapter) forward(req *brokerproto.OrderRequest) {
	// Deliberately unimplemented: dispatching req over a.conn requires
	// the protoc-generated LiveBrokerServiceClient this module does not
	// vendor. See DESIGN.md "Open Question" on the broker package.
	_ = req
}

func (a *GRPCAdapter) OnException(err any, e events.Event) {}

func (a *GRPCAdapter) Cleanup() {}

// barPeriodFromProto converts a wire bar_period int32 back to
// models.BarPeriod, used by a future StreamBars consumer.
func barPeriodFromProto(v int32) models.BarPeriod { return models.BarPeriod(v) }
