package nats

import (
	"context"
	"log/slog"
	"time"

	"github.com/strogmv/notifyevents/internal/pkg/logger"
	"github.com/strogmv/notifyevents/internal/port"
)

// OutboxRelay publishes pending outbox messages and marks them processed.
type OutboxRelay struct {
	Outbox    port.OutboxRepository
	Publisher port.Publisher
	TxManager port.TxManager
	Interval  time.Duration
	BatchSize int
}

// Run polls the outbox until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l := logger.From(ctx).With(slog.String("component", "outbox_relay"))
	l.Info("Outbox relay started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			l.Info("Outbox relay stopped")
			return nil
		case <-ticker.C:
			n, err := r.Flush(ctx)
			if err != nil {
				l.Error("Outbox flush failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				l.Debug("Outbox flushed", slog.Int("published", n))
			}
		}
	}
}

// Flush publishes one batch. A publish failure stops the batch so ordering is kept.
func (r *OutboxRelay) Flush(ctx context.Context) (int, error) {
	batch := r.BatchSize
	if batch <= 0 {
		batch = 100
	}
	published := 0
	run := func(ctx context.Context) error {
		msgs, err := r.Outbox.ListPending(ctx, batch)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if err := r.Publisher.Publish(ctx, m.Topic, m.Payload); err != nil {
				return err
			}
			if err := r.Outbox.MarkProcessed(ctx, m.ID); err != nil {
				return err
			}
			published++
		}
		return nil
	}
	var err error
	if r.TxManager != nil {
		err = r.TxManager.WithTx(ctx, run)
	} else {
		err = run(ctx)
	}
	return published, err
}
