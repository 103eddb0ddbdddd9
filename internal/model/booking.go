package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/calendar"
)

type BookingStatus string

const (
	BookingStatusScheduled  BookingStatus = "scheduled"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// ActiveBookingStatuses — статусы, которые занимают время консультанта.
var ActiveBookingStatuses = []BookingStatus{BookingStatusScheduled, BookingStatusInProgress}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusScheduled, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// bookings
type Booking struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ProviderID uuid.UUID `gorm:"type:uuid;not null;index:idx_booking_provider_start,priority:1" json:"provider_id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	// Клиент проекта на момент записи.
	ClientID uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`

	StartsAt time.Time `gorm:"not null;index:idx_booking_provider_start,priority:2" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`

	Status BookingStatus `gorm:"type:varchar(32);not null;default:'scheduled';index" json:"status"`
	Notes  string        `gorm:"type:text" json:"notes,omitempty"`

	CancelReason   string     `gorm:"type:text" json:"cancel_reason,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	ReminderSentAt *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Provider *Provider `gorm:"foreignKey:ProviderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"provider,omitempty"`
	Project  *Project  `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Client   *User     `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

func (b Booking) Range() calendar.TimeRange {
	return calendar.TimeRange{Start: b.StartsAt, End: b.EndsAt}
}
