// Package events defines the immutable, tagged-union event taxonomy
// that flows across the bus: Market, Request, Response, and Outcome
// variants (spec.md §3). Each concrete type embeds Base and carries a
// Tag used by the bus for exact-type dispatch without reflection
// (spec.md §9 DESIGN NOTES).
package events

// Tag is a small integer discriminator, one per concrete event type.
// Using an explicit tag (rather than reflect.TypeOf) lets the bus index
// subscriber lists by array position instead of a runtime type map.
type Tag int

const (
	TagBarReceived Tag = iota
	TagBarProcessed
	TagOrderSubmissionRequest
	TagOrderCancellationRequest
	TagOrderModificationRequest
	TagOrderAccepted
	TagOrderRejected
	TagCancellationAccepted
	TagCancellationRejected
	TagModificationAccepted
	TagModificationRejected
	TagFillEvent
	TagOrderExpired

	// NumTags is the count of concrete event variants; the bus sizes its
	// per-tag subscriber array to this.
	NumTags
)

func (t Tag) String() string {
	names := [...]string{
		"BarReceived", "BarProcessed",
		"OrderSubmissionRequest", "OrderCancellationRequest", "OrderModificationRequest",
		"OrderAccepted", "OrderRejected",
		"CancellationAccepted", "CancellationRejected",
		"ModificationAccepted", "ModificationRejected",
		"FillEvent", "OrderExpired",
	}
	if int(t) < 0 || int(t) >= len(names) {
		return "UNKNOWN"
	}
	return names[t]
}

// Event is implemented by every concrete event variant. TsEvent is the
// moment the represented fact occurred (source-provided in backtest);
// TsCreated is the wall-clock moment the event struct was constructed.
// Both are nanoseconds since the Unix epoch, per spec.md §3.
type Event interface {
	EventTag() Tag
	TsEvent() int64
	TsCreated() int64
}

// Base is embedded by every concrete event type. Events are immutable
// once constructed; the same instance is delivered by reference to
// every subscriber of its type (spec.md §9: "implementations should
// share by reference where the language allows").
type Base struct {
	tsEvent   int64
	tsCreated int64
}

// NewBase constructs the shared timestamp pair. tsCreated is passed in
// explicitly (rather than taken from time.Now at construction) so that
// callers compute it once and event construction remains deterministic
// under test.
func NewBase(tsEvent, tsCreated int64) Base {
	return Base{tsEvent: tsEvent, tsCreated: tsCreated}
}

func (b Base) TsEvent() int64   { return b.tsEvent }
func (b Base) TsCreated() int64 { return b.tsCreated }
