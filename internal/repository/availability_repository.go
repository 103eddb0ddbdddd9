package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/model"
)

type AvailabilityRepository interface {
	// Добавить окно; второе окно на тот же день недели — конфликт.
	Create(ctx context.Context, w *model.AvailabilityWindow) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilityWindow, error)
	// ListByProvider возвращает окна консультанта по дням недели.
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]model.AvailabilityWindow, error)
	GetByProviderAndDay(ctx context.Context, providerID uuid.UUID, day int) (*model.AvailabilityWindow, error)
	Update(ctx context.Context, w *model.AvailabilityWindow) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type GormAvailabilityRepository struct {
	db *gorm.DB
}

func NewGormAvailabilityRepository(db *gorm.DB) *GormAvailabilityRepository {
	return &GormAvailabilityRepository{db: db}
}

func (r *GormAvailabilityRepository) Create(ctx context.Context, w *model.AvailabilityWindow) error {
	return translate(r.db.WithContext(ctx).Create(w).Error, "availability window")
}

func (r *GormAvailabilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilityWindow, error) {
	var w model.AvailabilityWindow
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, translate(err, "availability window")
	}
	return &w, nil
}

func (r *GormAvailabilityRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]model.AvailabilityWindow, error) {
	var windows []model.AvailabilityWindow
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("day_of_week ASC").
		Find(&windows).Error
	if err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *GormAvailabilityRepository) GetByProviderAndDay(
	ctx context.Context,
	providerID uuid.UUID,
	day int,
) (*model.AvailabilityWindow, error) {
	var w model.AvailabilityWindow
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND day_of_week = ?", providerID, day).
		First(&w).Error
	if err != nil {
		return nil, translate(err, "availability window")
	}
	return &w, nil
}

func (r *GormAvailabilityRepository) Update(ctx context.Context, w *model.AvailabilityWindow) error {
	err := r.db.WithContext(ctx).
		Model(&model.AvailabilityWindow{}).
		Where("id = ?", w.ID).
		Updates(map[string]any{
			"day_of_week": w.DayOfWeek,
			"start_time":  w.StartTime,
			"end_time":    w.EndTime,
		}).Error
	return translate(err, "availability window")
}

func (r *GormAvailabilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.AvailabilityWindow{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "availability window")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "availability window")
	}
	return nil
}
