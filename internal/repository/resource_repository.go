package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/model"
)

type ResourceFilter struct {
	CategoryID *uuid.UUID
	Tag        string
	FileType   model.ResourceFileType
	// Подстрока в названии или описании.
	Query string
	// false — премиальные материалы отфильтровываются.
	IncludePremium bool
}

type ResourceStats struct {
	AccessCount   int64    `json:"access_count"`
	RatingCount   int64    `json:"rating_count"`
	AverageRating *float64 `json:"average_rating"`
}

type ResourceRepository interface {
	Create(ctx context.Context, r *model.Resource) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	List(ctx context.Context, filter ResourceFilter, page calendar.PageRequest) ([]model.Resource, int64, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Resource, error)

	// Запомнить просмотр; повторный просмотр обновляет время.
	RecordAccess(ctx context.Context, userID, resourceID uuid.UUID, at time.Time) error
	AccessedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	UpsertRating(ctx context.Context, r *model.ResourceRating) error
	Stats(ctx context.Context, resourceID uuid.UUID) (ResourceStats, error)

	CreateCategory(ctx context.Context, c *model.ResourceCategory) error
	CategoriesByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ResourceCategory, error)
	// Категории верхнего уровня вместе с дочерними.
	ListCategories(ctx context.Context) ([]model.ResourceCategory, error)
}

type GormResourceRepository struct {
	db *gorm.DB
}

func NewGormResourceRepository(db *gorm.DB) *GormResourceRepository {
	return &GormResourceRepository{db: db}
}

func (r *GormResourceRepository) Create(ctx context.Context, res *model.Resource) error {
	return translate(r.db.WithContext(ctx).Create(res).Error, "resource")
}

func (r *GormResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	var res model.Resource
	if err := r.db.WithContext(ctx).Preload("Categories").First(&res, "id = ?", id).Error; err != nil {
		return nil, translate(err, "resource")
	}
	return &res, nil
}

func (r *GormResourceRepository) List(
	ctx context.Context,
	filter ResourceFilter,
	page calendar.PageRequest,
) ([]model.Resource, int64, error) {
	var (
		resources []model.Resource
		total     int64
	)

	q := r.db.WithContext(ctx).Model(&model.Resource{})
	if !filter.IncludePremium {
		q = q.Where("resources.is_premium = ?", false)
	}
	if filter.FileType != "" {
		q = q.Where("resources.file_type = ?", filter.FileType)
	}
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		// теги лежат JSON-массивом строк
		q = q.Where("CAST(resources.tags AS TEXT) LIKE ?", `%"`+tag+`"%`)
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Query)); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(resources.title) LIKE ? OR LOWER(resources.description) LIKE ?", like, like)
	}
	if filter.CategoryID != nil {
		q = q.Joins("JOIN resource_category_links l ON l.resource_id = resources.id").
			Where("l.resource_category_id = ?", *filter.CategoryID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Categories").
		Order("resources.created_at DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&resources).Error
	if err != nil {
		return nil, 0, err
	}
	return resources, total, nil
}

func (r *GormResourceRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Resource, error) {
	var resources []model.Resource
	if len(ids) == 0 {
		return resources, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *GormResourceRepository) RecordAccess(ctx context.Context, userID, resourceID uuid.UUID, at time.Time) error {
	access := model.ResourceAccess{
		UserID:     userID,
		ResourceID: resourceID,
		AccessedAt: at.UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "resource_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"accessed_at"}),
		}).
		Create(&access).Error
	return translate(err, "resource access")
}

func (r *GormResourceRepository) AccessedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.ResourceAccess{}).
		Where("user_id = ?", userID).
		Order("accessed_at DESC").
		Pluck("resource_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormResourceRepository) UpsertRating(ctx context.Context, rating *model.ResourceRating) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "resource_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "comment", "updated_at"}),
		}).
		Create(rating).Error
	return translate(err, "resource rating")
}

func (r *GormResourceRepository) Stats(ctx context.Context, resourceID uuid.UUID) (ResourceStats, error) {
	var stats ResourceStats

	err := r.db.WithContext(ctx).
		Model(&model.ResourceAccess{}).
		Where("resource_id = ?", resourceID).
		Count(&stats.AccessCount).Error
	if err != nil {
		return stats, err
	}

	var avg sql.NullFloat64
	err = r.db.WithContext(ctx).
		Model(&model.ResourceRating{}).
		Select("COUNT(*), AVG(score)").
		Where("resource_id = ?", resourceID).
		Row().
		Scan(&stats.RatingCount, &avg)
	if err != nil {
		return stats, err
	}
	if avg.Valid {
		v := avg.Float64
		stats.AverageRating = &v
	}
	return stats, nil
}

func (r *GormResourceRepository) CreateCategory(ctx context.Context, c *model.ResourceCategory) error {
	return translate(r.db.WithContext(ctx).Create(c).Error, "resource category")
}

func (r *GormResourceRepository) CategoriesByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ResourceCategory, error) {
	var categories []model.ResourceCategory
	if len(ids) == 0 {
		return categories, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *GormResourceRepository) ListCategories(ctx context.Context) ([]model.ResourceCategory, error) {
	var categories []model.ResourceCategory
	err := r.db.WithContext(ctx).
		Preload("Children", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("parent_id IS NULL").
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}
