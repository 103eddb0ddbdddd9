package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/metrics"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

// Dispatcher вычитывает pending-строки outbox и публикует их.
// Транзакция на время публикации не держится.
type Dispatcher struct {
	events      repository.EventRepository
	publisher   Publisher
	clock       domain.Clock
	logger      *zap.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

func NewDispatcher(
	events repository.EventRepository,
	publisher Publisher,
	clock domain.Clock,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		events:      events,
		publisher:   publisher,
		clock:       clock,
		logger:      logger,
		interval:    time.Second,
		batchSize:   100,
		maxAttempts: 5,
	}
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Dispatcher) WithBatchSize(n int) *Dispatcher {
	if n > 0 {
		d.batchSize = n
	}
	return d
}

func (d *Dispatcher) WithMaxAttempts(n int) *Dispatcher {
	if n > 0 {
		d.maxAttempts = n
	}
	return d
}

// Run крутит цикл до отмены ctx.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("outbox dispatcher started",
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
		zap.Int("max_attempts", d.maxAttempts),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchPending(ctx)
		}
	}
}

// DispatchPending публикует одну пачку и возвращает число отправленных.
func (d *Dispatcher) DispatchPending(ctx context.Context) int {
	events, err := d.events.ListPending(ctx, d.clock.Now(), d.batchSize)
	if err != nil {
		d.logger.Error("failed to list pending events", zap.Error(err))
		return 0
	}

	sent := 0
	for _, e := range events {
		if d.publish(ctx, e) {
			sent++
		}
	}
	return sent
}

func (d *Dispatcher) publish(ctx context.Context, e model.Event) bool {
	task := Task{ID: e.ID, Kind: Kind(e.EventType), Payload: []byte(e.Payload)}

	if err := d.publisher.Publish(ctx, task); err != nil {
		metrics.OutboxPublished.WithLabelValues("failed").Inc()
		d.logger.Warn("failed to publish event",
			zap.String("event_id", e.ID.String()),
			zap.String("kind", e.EventType),
			zap.Int("attempt", e.Attempts+1),
			zap.Error(err),
		)
		if err := d.events.MarkFailed(ctx, e.ID, d.maxAttempts, err.Error(), d.clock.Now()); err != nil {
			d.logger.Error("failed to mark event as failed",
				zap.String("event_id", e.ID.String()),
				zap.Error(err),
			)
		}
		return false
	}

	metrics.OutboxPublished.WithLabelValues("sent").Inc()
	if err := d.events.MarkSent(ctx, e.ID); err != nil {
		d.logger.Error("failed to mark event as sent",
			zap.String("event_id", e.ID.String()),
			zap.Error(err),
		)
	}
	return true
}
