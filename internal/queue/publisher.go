package queue

import (
	"context"
)

// Publisher доставляет задачу из outbox потребителю.
type Publisher interface {
	Publish(ctx context.Context, task Task) error
}

// LocalPublisher обрабатывает задачу сразу в текущем процессе.
// Используется без брокера (dev-режим, тесты).
type LocalPublisher struct {
	router *Router
}

func NewLocalPublisher(router *Router) *LocalPublisher {
	return &LocalPublisher{router: router}
}

func (p *LocalPublisher) Publish(ctx context.Context, task Task) error {
	return p.router.Handle(ctx, task)
}
