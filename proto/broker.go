// Package proto holds the hand-written Go types a protoc run would
// normally generate for the live-broker-adapter gRPC service (spec.md
// §6: "live-broker adapters: the interface is specified; no concrete
// implementation is required"). Message and service shape are grounded
// on go-services/proto/proto.go's stub pattern: plain structs plus an
// UnimplementedXServer embed and a no-op RegisterXServer, rather than a
// real protoc-gen-go/protoc-gen-go-grpc output, since no .proto
// toolchain runs as part of this module.
package proto

import "context"

// OrderRequest mirrors events.OrderSubmissionRequest/
// OrderCancellationRequest/OrderModificationRequest collapsed into one
// wire message via the Kind discriminator, matching spec.md §6's "same
// 13 event variants with the same field semantics" requirement.
type OrderRequest struct {
	Kind          OrderRequestKind
	SystemOrderId string
	Symbol        string
	OrderType     int32
	Side          int32
	Quantity      float64
	LimitPrice    *float64
	StopPrice     *float64
	TsEvent       int64
}

type OrderRequestKind int32

const (
	OrderRequestKind_SUBMIT OrderRequestKind = 0
	OrderRequestKind_CANCEL OrderRequestKind = 1
	OrderRequestKind_MODIFY OrderRequestKind = 2
)

// OrderResponse mirrors the six response events
// (OrderAccepted/Rejected, CancellationAccepted/Rejected,
// ModificationAccepted/Rejected), again collapsed via Kind.
type OrderResponse struct {
	Kind              OrderResponseKind
	SystemOrderId     string
	TsBroker          int64
	BrokerOrderId     *string
	RejectionReason   int32
	RejectionMessage  string
	Quantity          *float64
	LimitPrice        *float64
	StopPrice         *float64
}

type OrderResponseKind int32

const (
	OrderResponseKind_ORDER_ACCEPTED          OrderResponseKind = 0
	OrderResponseKind_ORDER_REJECTED          OrderResponseKind = 1
	OrderResponseKind_CANCELLATION_ACCEPTED   OrderResponseKind = 2
	OrderResponseKind_CANCELLATION_REJECTED   OrderResponseKind = 3
	OrderResponseKind_MODIFICATION_ACCEPTED   OrderResponseKind = 4
	OrderResponseKind_MODIFICATION_REJECTED   OrderResponseKind = 5
)

// Fill mirrors events.FillEvent.
type Fill struct {
	SystemOrderId  string
	FillId         string
	Symbol         string
	Side           int32
	QuantityFilled float64
	FillPrice      float64
	Commission     float64
	Exchange       string
	TsBroker       int64
}

// Expiration mirrors events.OrderExpired.
type Expiration struct {
	SystemOrderId string
	Symbol        string
	TsBroker      int64
}

// Bar mirrors events.BarReceived, for a live data source implementation
// streaming bars over the same service (spec.md §6 "a live data source
// ... MUST emit BarReceived in timestamp order").
type Bar struct {
	Symbol    string
	BarPeriod int32
	TsEvent   int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// LiveBrokerServiceServer is the service a live broker/data-source
// implementation provides. SubmitOrder accepts one OrderRequest and
// returns the corresponding OrderResponse; StreamFills and StreamBars
// are server-streaming RPCs delivering FillEvent/OrderExpired and
// BarReceived traffic respectively. No concrete server is implemented
// (spec.md §6).
type LiveBrokerServiceServer interface {
	SubmitOrder(context.Context, *OrderRequest) (*OrderResponse, error)
	StreamFills(*StreamFillsRequest, FillStream) error
	StreamBars(*StreamBarsRequest, BarStream) error
}

type StreamFillsRequest struct{}

type StreamBarsRequest struct {
	Symbols   []string
	BarPeriod int32
}

// FillStream and BarStream stand in for the generated
// grpc.ServerStreamingServer[T] interfaces a real protoc-gen-go-grpc
// run would produce.
type FillStream interface {
	Send(*FillOrExpiration) error
}

type BarStream interface {
	Send(*Bar) error
}

// FillOrExpiration carries either a Fill or an Expiration on the
// fills stream, mirroring the oneof a real .proto would declare.
type FillOrExpiration struct {
	Fill       *Fill
	Expiration *Expiration
}

// UnimplementedLiveBrokerServiceServer satisfies LiveBrokerServiceServer
// with errors, for embedding by partial implementations — the
// generated-code convention go-services/proto/proto.go follows for
// BacktestServiceServer.
type UnimplementedLiveBrokerServiceServer struct{}

func (UnimplementedLiveBrokerServiceServer) SubmitOrder(context.Context, *OrderRequest) (*OrderResponse, error) {
	return nil, errUnimplemented
}

func (UnimplementedLiveBrokerServiceServer) StreamFills(*StreamFillsRequest, FillStream) error {
	return errUnimplemented
}

func (UnimplementedLiveBrokerServiceServer) StreamBars(*StreamBarsRequest, BarStream) error {
	return errUnimplemented
}

var errUnimplemented = unimplementedError("proto: method not implemented")

type unimplementedError string

func (e unimplementedError) Error() string { return string(e) }

// RegisterLiveBrokerServiceServer is a no-op: it registers nothing on
// any server. It is a stub matching go-services/proto/proto.go's
// RegisterBacktestServiceServer: wiring a real protoc-generated
// registration is out of scope per spec.md §6.
func RegisterLiveBrokerServiceServer(_ any, _ LiveBrokerServiceServer) {}
