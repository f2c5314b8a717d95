package scheduler

import (
	"context"
	"time"

	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/logger"
)

// Periodic enqueues the recurring tasks: an outbox drain every minute and a
// trust staleness sweep every hour. It runs alongside the worker so a single
// scheduler process covers both producing and consuming.
type Periodic struct {
	client *Client
	log    *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &Periodic{
		client: client,
		log:    log,
	}, nil
}

func (p *Periodic) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.client == nil {
		return
	}

	drainTicker := time.NewTicker(outboxPollEvery)
	defer drainTicker.Stop()
	sweepTicker := time.NewTicker(trustSweepEvery)
	defer sweepTicker.Stop()

	p.enqueueSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-drainTicker.C:
			p.enqueueDrain(ctx)
		case <-sweepTicker.C:
			p.enqueueSweep(ctx)
		}
	}
}

func (p *Periodic) enqueueDrain(ctx context.Context) {
	if err := p.client.EnqueueOutboxDrain(ctx, OutboxDrainPayload{Limit: outboxDrainLimit}); err != nil {
		p.log.Warn("enqueue outbox drain failed", "error", err)
	}
}

func (p *Periodic) enqueueSweep(ctx context.Context) {
	if err := p.client.EnqueueTrustSweep(ctx); err != nil {
		p.log.Warn("enqueue trust sweep failed", "error", err)
	}
}
