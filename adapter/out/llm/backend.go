package llm

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"ticket_server/core/port/out"
	"ticket_server/pkg/apperr"
	"ticket_server/pkg/logger"
	"ticket_server/pkg/resilience"
)

type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Backend implements the agent port over the chat client, with linear
// retry backoff and a circuit breaker so a dead model endpoint fails fast
// instead of stalling every ticket.
type Backend struct {
	client  completer
	breaker *resilience.CircuitBreaker
	retries int
	backoff time.Duration
	log     *logger.Logger
}

func NewBackend(client completer) *Backend {
	return &Backend{
		client:  client,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("llm")),
		retries: 3,
		backoff: 500 * time.Millisecond,
		log:     logger.Default().WithField("component", "llm_backend"),
	}
}

// Invoke sends the prompt and returns whatever came back. Output that
// parses as a JSON object is surfaced structured; everything else is raw
// text for the caller's recovery logic.
func (b *Backend) Invoke(ctx context.Context, sessionKey, prompt string) (*out.AgentResponse, error) {
	var raw string
	var lastErr error

	for attempt := 1; attempt <= b.retries; attempt++ {
		err := b.breaker.Execute(func() error {
			var cerr error
			raw, cerr = b.client.Complete(ctx, prompt)
			return cerr
		})
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		b.log.WithError(err).WithFields(map[string]any{
			"session": sessionKey,
			"attempt": attempt,
		}).Warn("model invocation attempt failed")

		if attempt < b.retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * b.backoff):
			}
		}
	}
	if lastErr != nil {
		return nil, apperr.AgentError(lastErr)
	}

	resp := &out.AgentResponse{RawText: raw}
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			resp.Structured = obj
		}
	}
	return resp, nil
}
