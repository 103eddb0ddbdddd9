package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/consulting-platform/internal/domain"
)

// roles — справочник ролей; код совпадает с domain.Role.
type Role struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Code string `gorm:"type:varchar(32);not null;uniqueIndex"`
	Name string `gorm:"type:varchar(255)"`
}

// user_roles — одна роль на пользователя, PK составной.
type UserRole struct {
	RoleID int64     `gorm:"primaryKey;index"`
	UserID uuid.UUID `gorm:"type:uuid;primaryKey;index"`

	Role *Role `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

var builtinRoles = []Role{
	{Code: string(domain.RoleClient), Name: "Client"},
	{Code: string(domain.RoleProvider), Name: "Consultant"},
	{Code: string(domain.RoleAdmin), Name: "Administrator"},
}

// seedRoles заводит встроенные роли; существующие строки не трогает.
func seedRoles(db *gorm.DB) error {
	for _, r := range builtinRoles {
		role := r
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&role).Error; err != nil {
			return err
		}
	}
	return nil
}
