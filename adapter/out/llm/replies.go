package llm

import (
	"context"
	"fmt"
)

type systemCompleter interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const supportSystemPrompt = `You are a Senior Cloud Support Engineer writing the first response to a customer support ticket.

WRITING STYLE & TONE:
- Professional, concise, technically accurate.
- Acknowledge the customer's issue and state the next step being taken.
- Plain text only: no markdown, no HTML, no emojis.
- Never invent facts that are not in the ticket.`

const alarmSystemPrompt = `You are a Senior Cloud Support Engineer specializing in CloudWatch alarm diagnostics and operational incident response.

ROLE OBJECTIVE:
- Accurately analyze CloudWatch alarm events across services including EC2, RDS, ALB, Lambda, and S3.
- Identify the likely cause of the alarm using the metric details present in the ticket (CPU %, memory %, IOPS, latency, 4XX/5XX errors).
- Communicate findings in a structured, technically sound format suitable for email.

WRITING STYLE & TONE:
- Tone: executive-level, technically authoritative, concise.
- Avoid conjecture unless supported by the metrics in the ticket.
- Plain text only: no markdown, no HTML, no emojis.`

const remediationSystemPrompt = `You are a Senior Cloud Support Engineer writing the first response to a customer after automated remediation ran on their request.

WRITING STYLE & TONE:
- Summarize exactly what the automation did, using only the remediation output provided.
- State clearly whether the request is fully handled or needs follow-up.
- Plain text only: no markdown, no HTML, no emojis.`

// Replies generates customer-facing first responses through the chat client.
type Replies struct {
	client systemCompleter
}

func NewReplies(client systemCompleter) *Replies {
	return &Replies{client: client}
}

func (r *Replies) GenerateReply(ctx context.Context, ticketID, description string) (string, error) {
	prompt := fmt.Sprintf("Ticket ID: %s\n\n%s\n\n", ticketID, description)
	return r.client.CompleteWithSystem(ctx, supportSystemPrompt, prompt)
}

func (r *Replies) GenerateAlarmReply(ctx context.Context, ticketID, subject, body, description string) (string, error) {
	prompt := fmt.Sprintf("Ticket ID: %s\n\nSubject: %s\n\nAlarm Content:\n%s\n\n%s", ticketID, subject, body, description)
	return r.client.CompleteWithSystem(ctx, alarmSystemPrompt, prompt)
}

func (r *Replies) GenerateRemediationReply(ctx context.Context, ticketID, description, remediationDetail string) (string, error) {
	prompt := fmt.Sprintf("Ticket ID: %s\n\n%s\n\nRemediation Output:\n%s", ticketID, description, remediationDetail)
	return r.client.CompleteWithSystem(ctx, remediationSystemPrompt, prompt)
}
