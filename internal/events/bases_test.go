package events

import "testing"

func TestEveryTagHasADistinctName(t *testing.T) {
	seen := make(map[string]Tag)
	for i := Tag(0); i < NumTags; i++ {
		name := i.String()
		if name == "UNKNOWN" {
			t.Fatalf("tag %d has no name", i)
		}
		if other, ok := seen[name]; ok {
			t.Fatalf("tags %d and %d share name %q", other, i, name)
		}
		seen[name] = i
	}
}

func TestTagStringOutOfRangeIsUnknown(t *testing.T) {
	if got := Tag(-1).String(); got != "UNKNOWN" {
		t.Fatalf("Tag(-1).String() = %q, want UNKNOWN", got)
	}
	if got := NumTags.String(); got != "UNKNOWN" {
		t.Fatalf("NumTags.String() = %q, want UNKNOWN", got)
	}
}

func TestEveryConcreteEventImplementsEvent(t *testing.T) {
	events := []Event{
		BarReceived{},
		BarProcessed{},
		OrderSubmissionRequest{},
		OrderCancellationRequest{},
		OrderModificationRequest{},
		OrderAccepted{},
		OrderRejected{},
		CancellationAccepted{},
		CancellationRejected{},
		ModificationAccepted{},
		ModificationRejected{},
		FillEvent{},
		OrderExpired{},
	}
	if len(events) != int(NumTags) {
		t.Fatalf("listed %d concrete event types, want %d (NumTags)", len(events), NumTags)
	}
	seen := make(map[Tag]bool)
	for _, e := range events {
		tag := e.EventTag()
		if seen[tag] {
			t.Fatalf("tag %s claimed by more than one concrete type", tag)
		}
		seen[tag] = true
	}
}

func TestBaseCarriesTimestampsVerbatim(t *testing.T) {
	b := NewBase(100, 200)
	if b.TsEvent() != 100 {
		t.Fatalf("TsEvent() = %d, want 100", b.TsEvent())
	}
	if b.TsCreated() != 200 {
		t.Fatalf("TsCreated() = %d, want 200", b.TsCreated())
	}
}
