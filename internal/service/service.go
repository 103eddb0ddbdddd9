// Package service — прикладные операции ядра: транзакции, права,
// постановка фоновых задач. Переходы состояний живут в lifecycle.
package service

import (
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/queue"
	"github.com/Leganyst/consulting-platform/internal/repository"
	"github.com/Leganyst/consulting-platform/internal/validation"
)

// Deps — общие зависимости сервисов.
type Deps struct {
	Store     *repository.Store
	Tasks     queue.Enqueuer
	Clock     domain.Clock
	Validator *validation.Validator
	Logger    *zap.Logger
	// Повторы SERIALIZABLE-транзакции при конфликте сериализации.
	TxRetries int
}

func (d Deps) withDefaults() Deps {
	if d.Tasks == nil {
		d.Tasks = queue.NewOutbox()
	}
	if d.Clock == nil {
		d.Clock = domain.SystemClock{}
	}
	if d.Validator == nil {
		d.Validator = validation.New()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.TxRetries <= 0 {
		d.TxRetries = 3
	}
	return d
}
