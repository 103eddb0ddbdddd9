package model

import (
	"time"
	// база зон вшивается в бинарник: окна считаются в зоне консультанта
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Provider — консультант, к которому клиенты записываются на сессии.
// Привязан к базе пользователей через UserID.
type Provider struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	DisplayName    string          `gorm:"type:varchar(255);not null" json:"display_name"`
	Specialization string          `gorm:"type:varchar(100);not null;index" json:"specialization"`
	Bio            string          `gorm:"type:text" json:"bio"`
	HourlyRate     decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"hourly_rate"`

	// Принимает ли консультант новые записи.
	IsAvailable bool `gorm:"not null;default:true;index" json:"is_available"`

	// IANA-зона, в которой заданы окна доступности.
	TimeZone string `gorm:"type:varchar(64);not null;default:'UTC'" json:"time_zone"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	User    *User                `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Windows []AvailabilityWindow `gorm:"foreignKey:ProviderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"windows,omitempty"`
}

func (p *Provider) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Location возвращает часовой пояс провайдера; неизвестная зона трактуется как UTC.
func (p *Provider) Location() *time.Location {
	if p.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
