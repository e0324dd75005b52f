package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ticket_server/core/port/out"
)

// EventHandler re-runs one recovered ticket event through the pipeline.
// A nil error deletes the entry; an error leaves it pending for the next
// pass.
type EventHandler interface {
	HandleReplay(ctx context.Context, event *out.TicketEvent) error
}

// Replayer is the worker-mode consumer of the dead-letter stream. Each
// entry is decoded and re-dispatched; successes are acknowledged and
// deleted, malformed entries are dropped so they cannot loop forever.
type Replayer struct {
	client   *redis.Client
	group    string
	consumer string
	handler  EventHandler
	log      zerolog.Logger

	readBlock time.Duration
	batchSize int64
}

type ReplayerConfig struct {
	Group     string
	Consumer  string
	Handler   EventHandler
	Logger    zerolog.Logger
	BatchSize int64
	ReadBlock time.Duration
}

func NewReplayer(client *redis.Client, cfg *ReplayerConfig) *Replayer {
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 10
	}
	readBlock := cfg.ReadBlock
	if readBlock == 0 {
		readBlock = 5 * time.Second
	}
	return &Replayer{
		client:    client,
		group:     cfg.Group,
		consumer:  cfg.Consumer,
		handler:   cfg.Handler,
		log:       cfg.Logger,
		readBlock: readBlock,
		batchSize: batchSize,
	}
}

// Run consumes the dead-letter stream until the context is canceled.
func (r *Replayer) Run(ctx context.Context) error {
	r.log.Info().
		Str("group", r.group).
		Str("consumer", r.consumer).
		Str("stream", StreamDeadLetter).
		Msg("starting dead-letter replayer")

	r.createConsumerGroup(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    r.group,
			Consumer: r.consumer,
			Streams:  []string{StreamDeadLetter, ">"},
			Count:    r.batchSize,
			Block:    r.readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Error().Err(err).Msg("error reading dead-letter stream")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range result {
			for _, msg := range stream.Messages {
				r.replayMessage(ctx, msg)
			}
		}
	}
}

func (r *Replayer) replayMessage(ctx context.Context, msg redis.XMessage) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		r.log.Error().Str("id", msg.ID).Msg("dead-letter entry has no data field, dropping")
		r.remove(ctx, msg.ID)
		return
	}

	event, cause, err := DecodeEnvelope([]byte(raw))
	if err != nil {
		// Malformed entries can never succeed; drop them instead of
		// letting them cycle through the pending list.
		r.log.Error().Err(err).Str("id", msg.ID).Msg("dropping malformed dead-letter entry")
		r.remove(ctx, msg.ID)
		return
	}

	r.log.Info().
		Str("id", msg.ID).
		Str("ticket_id", event.TicketID).
		Str("original_error", cause).
		Msg("replaying failed ticket event")

	if err := r.handler.HandleReplay(ctx, event); err != nil {
		r.log.Error().Err(err).Str("ticket_id", event.TicketID).Msg("replay failed, leaving entry pending")
		return
	}

	r.remove(ctx, msg.ID)
}

func (r *Replayer) remove(ctx context.Context, id string) {
	if err := r.client.XAck(ctx, StreamDeadLetter, r.group, id).Err(); err != nil {
		r.log.Error().Err(err).Str("id", id).Msg("error acknowledging dead-letter entry")
	}
	if err := r.client.XDel(ctx, StreamDeadLetter, id).Err(); err != nil {
		r.log.Error().Err(err).Str("id", id).Msg("error deleting dead-letter entry")
	}
}

func (r *Replayer) createConsumerGroup(ctx context.Context) {
	err := r.client.XGroupCreateMkStream(ctx, StreamDeadLetter, r.group, "0").Err()
	if err != nil && !isBusyGroupErr(err) {
		r.log.Error().Err(err).Msg("error creating consumer group")
	}
}

func isBusyGroupErr(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
