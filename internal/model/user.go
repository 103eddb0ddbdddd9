package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// users
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Email        string `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	DisplayName  string `gorm:"type:varchar(255)" json:"display_name"`
	ContactPhone string `gorm:"type:varchar(32)" json:"contact_phone,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// clients — платёжный профиль клиента (ссылка на покупателя в платёжном шлюзе).
type Client struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	// Идентификатор покупателя во внешнем платёжном шлюзе.
	GatewayCustomerRef string `gorm:"type:varchar(255)" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
