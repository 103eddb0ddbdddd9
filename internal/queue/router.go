package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/metrics"
)

type Handler func(ctx context.Context, task Task) error

// Router раздаёт задачи обработчикам по Kind.
type Router struct {
	routes  map[Kind]Handler
	deduper Deduper
	logger  *zap.Logger
}

// NewRouter; deduper может быть nil — тогда повторные доставки не отсекаются.
func NewRouter(deduper Deduper, logger *zap.Logger) *Router {
	return &Router{
		routes:  make(map[Kind]Handler),
		deduper: deduper,
		logger:  logger,
	}
}

func (r *Router) Register(kind Kind, h Handler) {
	r.routes[kind] = h
}

func (r *Router) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.routes))
	for k := range r.routes {
		kinds = append(kinds, k)
	}
	return kinds
}

func (r *Router) Handle(ctx context.Context, task Task) (err error) {
	h, ok := r.routes[task.Kind]
	if !ok {
		r.logger.Warn("no handler for task", zap.String("kind", string(task.Kind)))
		return nil
	}

	id := task.ID.String()
	if r.deduper != nil && !r.deduper.AcquireOnce(ctx, task.Kind, id) {
		metrics.IncrementTaskProcessed(string(task.Kind), "duplicate")
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Kind, rec)
		}
		if err != nil {
			if r.deduper != nil {
				r.deduper.Release(ctx, task.Kind, id)
			}
			metrics.IncrementTaskProcessed(string(task.Kind), "failed")
			return
		}
		metrics.IncrementTaskProcessed(string(task.Kind), "success")
	}()

	return h(ctx, task)
}
