package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

// Enqueuer ставит задачу в очередь в рамках транзакции tx:
// задача появится только если транзакция зафиксирована.
type Enqueuer interface {
	Enqueue(ctx context.Context, tx *repository.Store, kind Kind, payload any) error
}

// Outbox пишет задачи строками в таблицу events.
type Outbox struct{}

func NewOutbox() *Outbox { return &Outbox{} }

func (Outbox) Enqueue(ctx context.Context, tx *repository.Store, kind Kind, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return tx.Events.Insert(ctx, &model.Event{
		EventType: string(kind),
		Payload:   body,
		Status:    model.EventStatusPending,
	})
}
