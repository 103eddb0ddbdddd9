package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// TempChargePrefix — префикс временной ссылки на списание до ответа шлюза.
const TempChargePrefix = "temp_"

// payments
type Payment struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ProjectID *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`

	Amount    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	ChargeRef string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"charge_ref"`
	Status    PaymentStatus   `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	User    *User    `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
