package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/calendar"
)

// availability_windows — еженедельное окно приёма; одно окно на день недели.
type AvailabilityWindow struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ProviderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_window_provider_day" json:"provider_id"`

	// 0 = понедельник ... 6 = воскресенье.
	DayOfWeek int `gorm:"not null;uniqueIndex:idx_window_provider_day;check:day_of_week BETWEEN 0 AND 6" json:"day_of_week"`

	StartTime datatypes.Time `gorm:"not null" json:"start_time"`
	EndTime   datatypes.Time `gorm:"not null" json:"end_time"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Provider *Provider `gorm:"foreignKey:ProviderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (w *AvailabilityWindow) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// Window переводит строку таблицы в календарное окно.
func (w AvailabilityWindow) Window() calendar.Window {
	return calendar.Window{
		Day:   calendar.Weekday(w.DayOfWeek),
		Start: time.Duration(w.StartTime),
		End:   time.Duration(w.EndTime),
	}
}

// NewAvailabilityWindow собирает строку таблицы из календарного окна.
func NewAvailabilityWindow(providerID uuid.UUID, w calendar.Window) AvailabilityWindow {
	return AvailabilityWindow{
		ProviderID: providerID,
		DayOfWeek:  int(w.Day),
		StartTime:  datatypes.Time(w.Start),
		EndTime:    datatypes.Time(w.End),
	}
}
