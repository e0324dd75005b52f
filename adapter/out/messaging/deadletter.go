// Package messaging provides the Redis Streams dead-letter queue: failed
// ticket events are preserved verbatim and replayed by the worker.
package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"ticket_server/core/port/out"
)

// StreamDeadLetter is the stream failed ticket events land on.
const StreamDeadLetter = "tickets:deadletter"

// envelope wraps the original event with its failure cause, so a replayed
// event is byte-identical to the one that failed.
type envelope struct {
	Error         string           `json:"error"`
	OriginalEvent *out.TicketEvent `json:"originalEvent"`
}

// DeadLetterProducer implements the dead-letter port on a Redis Stream.
type DeadLetterProducer struct {
	client *redis.Client
}

func NewDeadLetterProducer(client *redis.Client) *DeadLetterProducer {
	return &DeadLetterProducer{client: client}
}

func (p *DeadLetterProducer) Publish(ctx context.Context, event *out.TicketEvent, cause string) error {
	data, err := json.Marshal(envelope{Error: cause, OriginalEvent: event})
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter envelope: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamDeadLetter,
		ID:     "*",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", StreamDeadLetter, err)
	}
	return nil
}

// DecodeEnvelope extracts the original event from a dead-letter entry's
// data field.
func DecodeEnvelope(data []byte) (*out.TicketEvent, string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, "", fmt.Errorf("failed to parse dead-letter envelope: %w", err)
	}
	if env.OriginalEvent == nil {
		return nil, "", fmt.Errorf("dead-letter envelope has no original event")
	}
	return env.OriginalEvent, env.Error, nil
}
