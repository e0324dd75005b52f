package out

import "context"

// AgentResponse is the untrusted output of the LLM backend. Exactly one of
// Structured or RawText is meaningful: a backend that produced parseable
// JSON fills Structured; anything else lands in RawText for the caller's
// recovery logic. Both may be empty when the backend returned nothing.
type AgentResponse struct {
	Structured map[string]any
	RawText    string
}

// Empty reports whether the backend returned no usable content at all.
func (r *AgentResponse) Empty() bool {
	return r == nil || (len(r.Structured) == 0 && r.RawText == "")
}

// AgentBackend is the pluggable LLM invocation client. Output is
// semi-structured at best: implementations must surface whatever the model
// said without interpreting it, and callers own all recovery and validation.
type AgentBackend interface {
	Invoke(ctx context.Context, sessionKey, prompt string) (*AgentResponse, error)
}

// ReplyGenerator produces customer-facing reply text.
type ReplyGenerator interface {
	// GenerateReply writes a generic support first-response.
	GenerateReply(ctx context.Context, ticketID, description string) (string, error)

	// GenerateAlarmReply writes a first-response for alarm-style tickets,
	// grounded in the raw alarm content.
	GenerateAlarmReply(ctx context.Context, ticketID, subject, body, description string) (string, error)

	// GenerateRemediationReply writes a first-response that folds in the
	// output of automated remediation attempts.
	GenerateRemediationReply(ctx context.Context, ticketID, description, remediationDetail string) (string, error)
}

// Translator detects the dominant language of text and returns an English
// rendition. For English input it returns the text unchanged.
type Translator interface {
	DetectAndTranslate(ctx context.Context, text string) (languageCode, english string, err error)
}
