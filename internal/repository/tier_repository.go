package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/model"
)

type ServiceTierRepository interface {
	Create(ctx context.Context, t *model.ServiceTier) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceTier, error)
	// Активные тарифы по возрастанию цены.
	ListActive(ctx context.Context) ([]model.ServiceTier, error)
}

type GormServiceTierRepository struct {
	db *gorm.DB
}

func NewGormServiceTierRepository(db *gorm.DB) *GormServiceTierRepository {
	return &GormServiceTierRepository{db: db}
}

func (r *GormServiceTierRepository) Create(ctx context.Context, t *model.ServiceTier) error {
	return translate(r.db.WithContext(ctx).Create(t).Error, "service tier")
}

func (r *GormServiceTierRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceTier, error) {
	var t model.ServiceTier
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err, "service tier")
	}
	return &t, nil
}

func (r *GormServiceTierRepository) ListActive(ctx context.Context) ([]model.ServiceTier, error) {
	var tiers []model.ServiceTier
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("price ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}
