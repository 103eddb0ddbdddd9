package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EventStatus string

const (
	EventStatusPending EventStatus = "pending"
	EventStatusSent    EventStatus = "sent"
	EventStatusFailed  EventStatus = "failed"
)

// events — outbox фоновых задач: строка пишется в той же транзакции,
// что и изменение состояния, и позже публикуется диспетчером.
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	// Ключ маршрутизации задачи, например "booking.cancelled".
	EventType string `gorm:"type:varchar(64);not null;index"`

	Payload datatypes.JSON `gorm:"not null"`

	Status      EventStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_events_status_next,priority:1"`
	Attempts    int         `gorm:"not null;default:0"`
	NextAttempt *time.Time  `gorm:"index:idx_events_status_next,priority:2"`
	LastError   string      `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
