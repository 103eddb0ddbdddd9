package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// service_tiers — тарифы консалтинговых пакетов.
type ServiceTier struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Name        string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`

	// Полное сопровождение включает премиальную библиотеку и приоритет записи.
	IsFullService bool `gorm:"not null;default:false" json:"is_full_service"`

	// Список фич пакета, JSON-массив строк.
	Features datatypes.JSON `json:"features"`

	IsActive bool `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (t *ServiceTier) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

func (t ServiceTier) FeatureList() []string {
	var out []string
	if len(t.Features) == 0 {
		return out
	}
	_ = json.Unmarshal(t.Features, &out)
	return out
}
