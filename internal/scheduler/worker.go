package scheduler

import (
	"context"
	"fmt"
	"time"

	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const (
	sweepBatchSize   = 100
	outboxDrainLimit = 50
	outboxPollEvery  = time.Minute
	trustSweepEvery  = time.Hour
)

// OutboxProcessor drains due notification outbox records.
type OutboxProcessor interface {
	ProcessOutbox(ctx context.Context, limit int) (int, error)
}

// TrustScorer recomputes stale trust scores.
type TrustScorer interface {
	SweepStale(ctx context.Context, staleAfter time.Duration, limit int) (int, error)
}

type Worker struct {
	server          *asynq.Server
	mux             *asynq.ServeMux
	outbox          OutboxProcessor
	trust           TrustScorer
	trustStaleAfter time.Duration
	log             *logger.Logger
}

func NewWorker(cfg *config.Config, outbox OutboxProcessor, trust TrustScorer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:          server,
		mux:             mux,
		outbox:          outbox,
		trust:           trust,
		trustStaleAfter: cfg.GetTrustSweepStaleAfter(),
		log:             log,
	}

	mux.HandleFunc(TaskNotificationOutboxDrain, w.handleOutboxDrain)
	mux.HandleFunc(TaskTrustSweep, w.handleTrustSweep)

	return w, nil
}

func (w *Worker) handleOutboxDrain(ctx context.Context, task *asynq.Task) error {
	if w.outbox == nil {
		return nil
	}

	payload, err := ParseOutboxDrainPayload(task)
	if err != nil {
		return err
	}
	limit := payload.Limit
	if limit < 1 {
		limit = outboxDrainLimit
	}

	delivered, err := w.outbox.ProcessOutbox(ctx, limit)
	if err != nil {
		return err
	}
	if delivered > 0 {
		w.log.Info("notification outbox drained", "delivered", delivered)
	}
	return nil
}

func (w *Worker) handleTrustSweep(ctx context.Context, _ *asynq.Task) error {
	if w.trust == nil {
		return nil
	}

	recomputed, err := w.trust.SweepStale(ctx, w.trustStaleAfter, sweepBatchSize)
	if err != nil {
		return err
	}
	if recomputed > 0 {
		w.log.Info("stale trust scores recomputed", "count", recomputed)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
