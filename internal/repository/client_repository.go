package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/model"
)

type ClientRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Client, error)
	// Вернуть платёжный профиль клиента, создав его при отсутствии.
	EnsureByUserID(ctx context.Context, userID uuid.UUID) (*model.Client, error)
	SetGatewayCustomerRef(ctx context.Context, userID uuid.UUID, ref string) error
}

type GormClientRepository struct {
	db *gorm.DB
}

func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

func (r *GormClientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Client, error) {
	var c model.Client
	if err := r.db.WithContext(ctx).First(&c, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err, "client")
	}
	return &c, nil
}

func (r *GormClientRepository) EnsureByUserID(ctx context.Context, userID uuid.UUID) (*model.Client, error) {
	if userID == uuid.Nil {
		return nil, translate(gorm.ErrRecordNotFound, "client")
	}
	var c model.Client
	err := r.db.WithContext(ctx).First(&c, "user_id = ?", userID).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translate(err, "client")
	}

	c = model.Client{UserID: userID}
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, translate(err, "client")
	}
	return &c, nil
}

func (r *GormClientRepository) SetGatewayCustomerRef(ctx context.Context, userID uuid.UUID, ref string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Client{}).
		Where("user_id = ?", userID).
		Update("gateway_customer_ref", ref)
	if res.Error != nil {
		return translate(res.Error, "client")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "client")
	}
	return nil
}
