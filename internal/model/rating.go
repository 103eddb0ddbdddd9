package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ratings — одна оценка консультанта от клиента; повторная оценка перезаписывает.
type Rating struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ProviderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_provider_client" json:"provider_id"`
	ClientID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_provider_client" json:"client_id"`

	Score   int    `gorm:"not null;check:score BETWEEN 1 AND 5" json:"score"`
	Comment string `gorm:"type:text" json:"comment,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Provider *Provider `gorm:"foreignKey:ProviderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Client   *User     `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (r *Rating) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
