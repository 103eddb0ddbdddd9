package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/model"
)

// EventRepository — хранилище outbox-строк фоновых задач.
type EventRepository interface {
	Insert(ctx context.Context, e *model.Event) error
	// Готовые к отправке строки: pending и next_attempt наступил (или пуст).
	ListPending(ctx context.Context, now time.Time, limit int) ([]model.Event, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	// Увеличить счётчик попыток; после maxAttempts строка уходит в failed.
	MarkFailed(ctx context.Context, id uuid.UUID, maxAttempts int, errMsg string, now time.Time) error
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Insert(ctx context.Context, e *model.Event) error {
	if e.Status == "" {
		e.Status = model.EventStatusPending
	}
	return translate(r.db.WithContext(ctx).Create(e).Error, "event")
}

func (r *GormEventRepository) ListPending(ctx context.Context, now time.Time, limit int) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).
		Where("status = ?", model.EventStatusPending).
		Where("next_attempt IS NULL OR next_attempt <= ?", now.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormEventRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     model.EventStatusSent,
			"last_error": "",
		}).Error
}

func (r *GormEventRepository) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	maxAttempts int,
	errMsg string,
	now time.Time,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e model.Event
		if err := forUpdate(tx).First(&e, "id = ?", id).Error; err != nil {
			return translate(err, "event")
		}

		attempts := e.Attempts + 1
		status := model.EventStatusPending
		if attempts >= maxAttempts {
			status = model.EventStatusFailed
		}
		next := now.UTC().Add(backoff(attempts))

		return tx.Model(&model.Event{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"attempts":     attempts,
				"status":       status,
				"next_attempt": next,
				"last_error":   errMsg,
			}).Error
	})
}

// backoff: 2^attempts секунд, не больше 10 минут.
func backoff(attempts int) time.Duration {
	if attempts > 9 {
		return 10 * time.Minute
	}
	d := time.Duration(1<<attempts) * time.Second
	if d > 10*time.Minute {
		return 10 * time.Minute
	}
	return d
}
