package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/consulting-platform/internal/model"
)

type RatingRepository interface {
	// Вставить оценку или перезаписать оценку того же клиента.
	Upsert(ctx context.Context, r *model.Rating) error
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]model.Rating, error)
	// Средняя оценка; nil, если оценок нет.
	Average(ctx context.Context, providerID uuid.UUID) (*float64, error)
}

type GormRatingRepository struct {
	db *gorm.DB
}

func NewGormRatingRepository(db *gorm.DB) *GormRatingRepository {
	return &GormRatingRepository{db: db}
}

func (r *GormRatingRepository) Upsert(ctx context.Context, rating *model.Rating) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_id"}, {Name: "client_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "comment", "updated_at"}),
		}).
		Create(rating).Error
	return translate(err, "rating")
}

func (r *GormRatingRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]model.Rating, error) {
	var ratings []model.Rating
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("updated_at DESC").
		Find(&ratings).Error
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *GormRatingRepository) Average(ctx context.Context, providerID uuid.UUID) (*float64, error) {
	var avg sql.NullFloat64
	err := r.db.WithContext(ctx).
		Model(&model.Rating{}).
		Select("AVG(score)").
		Where("provider_id = ?", providerID).
		Row().
		Scan(&avg)
	if err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	v := avg.Float64
	return &v, nil
}
