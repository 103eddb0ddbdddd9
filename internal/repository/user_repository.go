package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/model"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// Создать пользователя по email или обновить контактные данные существующего.
	UpsertUser(ctx context.Context, email, displayName, contactPhone string) (*model.User, error)
	SetRole(ctx context.Context, userID uuid.UUID, roleCode string) error
	GetRole(ctx context.Context, userID uuid.UUID) (string, error)
	// Все пользователи с указанной ролью.
	ListByRole(ctx context.Context, roleCode string) ([]model.User, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	// Keep only digits; ignore formatting characters.
	b := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		c := phone[i]
		if c >= '0' && c <= '9' {
			b = append(b, c)
		}
	}
	return string(b)
}

func (r *GormUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (r *GormUserRepository) UpsertUser(ctx context.Context, email, displayName, contactPhone string) (*model.User, error) {
	email = normalizeEmail(email)
	contactPhone = normalizePhone(contactPhone)

	var u model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u = model.User{Email: email, DisplayName: displayName, ContactPhone: contactPhone}
		if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
			return nil, translate(err, "user")
		}
		return &u, nil
	}
	if err != nil {
		return nil, translate(err, "user")
	}

	updates := map[string]any{}
	if displayName != "" {
		updates["display_name"] = displayName
		u.DisplayName = displayName
	}
	if contactPhone != "" {
		updates["contact_phone"] = contactPhone
		u.ContactPhone = contactPhone
	}
	if len(updates) == 0 {
		return &u, nil
	}
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (r *GormUserRepository) SetRole(ctx context.Context, userID uuid.UUID, roleCode string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// ensure role exists
		role := model.Role{Code: roleCode, Name: roleCode}
		if err := tx.Where("code = ?", roleCode).FirstOrCreate(&role).Error; err != nil {
			return err
		}

		// remove previous roles and set new one (single role policy)
		if err := tx.Where("user_id = ?", userID).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}

		return tx.Create(&model.UserRole{RoleID: role.ID, UserID: userID}).Error
	})
}

func (r *GormUserRepository) GetRole(ctx context.Context, userID uuid.UUID) (string, error) {
	var role model.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		First(&role).Error
	if err != nil {
		return "", translate(err, "role")
	}
	return role.Code, nil
}

func (r *GormUserRepository) ListByRole(ctx context.Context, roleCode string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.code = ?", roleCode).
		Order("users.created_at").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
