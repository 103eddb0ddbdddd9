package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/model"
)

// ProviderFilter — фильтр каталога консультантов.
type ProviderFilter struct {
	// Подстрока специализации, без учёта регистра.
	Specialization string
	OnlyAvailable  bool
}

type ProviderRepository interface {
	Create(ctx context.Context, p *model.Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	// Получить консультанта с блокировкой строки до конца транзакции.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Provider, error)
	List(ctx context.Context, filter ProviderFilter, page calendar.PageRequest) ([]model.Provider, int64, error)
	// Обновить редактируемые поля профиля.
	UpdateProfile(ctx context.Context, p *model.Provider) error
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
}

type GormProviderRepository struct {
	db *gorm.DB
}

func NewGormProviderRepository(db *gorm.DB) *GormProviderRepository {
	return &GormProviderRepository{db: db}
}

func (r *GormProviderRepository) Create(ctx context.Context, p *model.Provider) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "provider")
}

func (r *GormProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	var p model.Provider
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "provider")
	}
	return &p, nil
}

func (r *GormProviderRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	var p model.Provider
	if err := forUpdate(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "provider")
	}
	return &p, nil
}

func (r *GormProviderRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Provider, error) {
	var p model.Provider
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err, "provider")
	}
	return &p, nil
}

func (r *GormProviderRepository) List(
	ctx context.Context,
	filter ProviderFilter,
	page calendar.PageRequest,
) ([]model.Provider, int64, error) {
	var (
		providers []model.Provider
		total     int64
	)

	q := r.db.WithContext(ctx).Model(&model.Provider{})
	if s := strings.ToLower(strings.TrimSpace(filter.Specialization)); s != "" {
		q = q.Where("LOWER(specialization) LIKE ?", "%"+s+"%")
	}
	if filter.OnlyAvailable {
		q = q.Where("is_available = ?", true)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("display_name ASC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&providers).Error
	if err != nil {
		return nil, 0, err
	}
	return providers, total, nil
}

func (r *GormProviderRepository) UpdateProfile(ctx context.Context, p *model.Provider) error {
	err := r.db.WithContext(ctx).
		Model(&model.Provider{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"display_name":   p.DisplayName,
			"specialization": p.Specialization,
			"bio":            p.Bio,
			"hourly_rate":    p.HourlyRate,
			"time_zone":      p.TimeZone,
		}).Error
	return translate(err, "provider")
}

func (r *GormProviderRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	err := r.db.WithContext(ctx).
		Model(&model.Provider{}).
		Where("id = ?", id).
		Update("is_available", available).Error
	return translate(err, "provider")
}
