// Package out defines the outbound ports the core depends on.
package out

import "context"

// ReplyResult carries the helpdesk API's response to a reply send.
type ReplyResult struct {
	StatusCode int
	Body       string
}

// HelpdeskClient is the surface of the helpdesk REST API the pipeline uses.
type HelpdeskClient interface {
	// AssignToTeam moves the ticket into the named operational team's queue.
	AssignToTeam(ctx context.Context, ticketID, teamName string) error

	// UpdateStatus moves the ticket from Open to Assigned.
	UpdateStatus(ctx context.Context, ticketID string) error

	// CloseTicket marks the ticket Closed.
	CloseTicket(ctx context.Context, ticketID string) error

	// AddPrivateComment posts an internal note invisible to the customer.
	AddPrivateComment(ctx context.Context, ticketID, comment string) error

	// SendReply sends the customer-facing first response email.
	SendReply(ctx context.Context, ticketID string, fromEmails, toEmails, ccEmails []string, htmlBody string) (*ReplyResult, error)
}

// TeamNotifier posts a notification to a team's chat webhook.
type TeamNotifier interface {
	NotifyTeam(ctx context.Context, teamName, subject, ticketID, body string, addresses []string) error
}
