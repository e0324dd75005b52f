package out

import "context"

// TicketEvent is the raw inbound webhook payload, preserved verbatim so a
// failed event can be replayed exactly as it arrived.
type TicketEvent struct {
	TicketID      string   `json:"ticketId"`
	TicketSubject string   `json:"ticketSubject"`
	TicketBody    string   `json:"ticketBody"`
	FromEmail     []string `json:"fromEmail"`
	ToEmail       []string `json:"toEmail"`
	CcEmail       []string `json:"ccEmail"`
	AccountRef    string   `json:"zohoAccountId,omitempty"`
}

// DeadLetterQueue preserves failed ticket events for later replay.
type DeadLetterQueue interface {
	Publish(ctx context.Context, event *TicketEvent, cause string) error
}
