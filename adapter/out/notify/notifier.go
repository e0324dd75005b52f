// Package notify posts ticket notifications to team chat channels through
// incoming webhooks.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"ticket_server/pkg/logger"
)

// WebhookDirectory resolves a team name to its incoming-webhook URL.
type WebhookDirectory interface {
	WebhookURL(ctx context.Context, teamName string) (string, error)
}

// Notifier implements the team notification port over chat webhooks. The
// webhook URL per team comes from the directory at send time, so teams can
// be rerouted without a restart.
type Notifier struct {
	directory WebhookDirectory
	ticketURL string // format string receiving the ticket id
	log       *logger.Logger
}

func NewNotifier(directory WebhookDirectory, ticketURLFormat string) *Notifier {
	return &Notifier{
		directory: directory,
		ticketURL: ticketURLFormat,
		log:       logger.Default().WithField("component", "notifier"),
	}
}

func (n *Notifier) NotifyTeam(ctx context.Context, teamName, subject, ticketID, body string, addresses []string) error {
	url, err := n.directory.WebhookURL(ctx, teamName)
	if err != nil {
		return err
	}

	msg := n.buildMessage(teamName, subject, ticketID, body, addresses)
	if err := slack.PostWebhookContext(ctx, url, msg); err != nil {
		return fmt.Errorf("webhook post to %s: %w", teamName, err)
	}
	n.log.WithFields(map[string]any{
		"team":      teamName,
		"ticket_id": ticketID,
	}).Info("team notification sent")
	return nil
}

func (n *Notifier) buildMessage(teamName, subject, ticketID, body string, addresses []string) *slack.WebhookMessage {
	var b strings.Builder
	fmt.Fprintf(&b, ":wrench: *Support Ticket: %s*\n", subject)
	fmt.Fprintf(&b, "Attention %s, a new ticket needs review.\n", teamName)
	if n.ticketURL != "" {
		fmt.Fprintf(&b, "<%s|View Ticket #%s>\n", fmt.Sprintf(n.ticketURL, ticketID), ticketID)
	} else {
		fmt.Fprintf(&b, "Ticket #%s\n", ticketID)
	}
	if body != "" {
		fmt.Fprintf(&b, "\n%s\n", body)
	}
	if len(addresses) > 0 {
		fmt.Fprintf(&b, "\nParticipants: %s", strings.Join(addresses, ", "))
	}

	return &slack.WebhookMessage{
		Username: "ticket-pipeline",
		Text:     b.String(),
	}
}
