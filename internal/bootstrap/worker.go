package bootstrap

import (
	"context"
	"fmt"
	"os"
	"sync"

	"ticket_server/adapter/out/messaging"
	"ticket_server/config"
	"ticket_server/core/port/out"
	"ticket_server/pkg/logger"

	"github.com/rs/zerolog"
)

// Worker is the dead-letter replay process: it consumes failed ticket
// events from the Redis Stream and runs them back through the dispatcher.
type Worker struct {
	replayer *messaging.Replayer
	deps     *Dependencies
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	zlog     zerolog.Logger
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "ticket-replayer",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "replayer").Logger()

	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		zlog:   zlog,
	}

	w.replayer = messaging.NewReplayer(deps.Redis, &messaging.ReplayerConfig{
		Group:     cfg.ReplayGroup,
		Consumer:  cfg.ReplayConsumerID,
		Handler:   &replayHandler{deps: deps},
		Logger:    zlog,
		BatchSize: int64(cfg.ReplayBatchSize),
		ReadBlock: cfg.ReplayBlock,
	})

	return w, cleanup, nil
}

// replayHandler re-dispatches a recovered event. A second hard failure
// returns an error so the entry stays pending for a later pass.
type replayHandler struct {
	deps *Dependencies
}

func (h *replayHandler) HandleReplay(ctx context.Context, event *out.TicketEvent) error {
	decision := h.deps.Dispatcher.Process(ctx, event)
	if decision.StatusCode >= 500 {
		return fmt.Errorf("replay of ticket %s failed: %s", event.TicketID, decision.EarlyExitReason)
	}
	logger.Info("Replayed ticket %s: category=%s, status=%d",
		event.TicketID, decision.FinalCategory, decision.StatusCode)
	return nil
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.zlog.Info().Msg("Starting dead-letter replayer...")
		if err := w.replayer.Run(w.ctx); err != nil && err != context.Canceled {
			w.zlog.Error().Err(err).Msg("Dead-letter replayer error")
		}
	}()

	// Block until context is cancelled
	<-w.ctx.Done()
}

func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) Dependencies() *Dependencies {
	return w.deps
}
