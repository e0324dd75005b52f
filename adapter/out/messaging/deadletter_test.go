package messaging

import (
	"testing"

	"github.com/goccy/go-json"

	"ticket_server/core/port/out"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	event := &out.TicketEvent{
		TicketID:      "t-55",
		TicketSubject: "ALARM: HighCPU",
		TicketBody:    "body text",
		FromEmail:     []string{"a@example.com"},
	}
	data, err := json.Marshal(envelope{Error: "boom", OriginalEvent: event})
	if err != nil {
		t.Fatal(err)
	}

	got, cause, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if cause != "boom" {
		t.Errorf("cause = %q", cause)
	}
	if got.TicketID != "t-55" || got.TicketSubject != "ALARM: HighCPU" {
		t.Errorf("event = %+v", got)
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	if _, _, err := DecodeEnvelope([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed envelope")
	}
	if _, _, err := DecodeEnvelope([]byte(`{"error": "x"}`)); err == nil {
		t.Fatal("expected error for envelope without original event")
	}
}
