package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/model"
)

type RateInput struct {
	Score   int    `json:"score" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// ProviderStats — агрегаты по консультанту.
type ProviderStats struct {
	TotalBookings     int64    `json:"total_bookings"`
	CompletedBookings int64    `json:"completed_bookings"`
	AverageRating     *float64 `json:"average_rating"`
}

// RatingService агрегирует оценки консультантов; всё, кроме Rate, только читает.
type RatingService struct {
	Deps
}

func NewRatingService(d Deps) *RatingService {
	return &RatingService{Deps: d.withDefaults()}
}

// Rate ставит или перезаписывает оценку клиента. Нужна хотя бы одна завершённая сессия.
func (s *RatingService) Rate(ctx context.Context, p domain.Principal, providerID uuid.UUID, in RateInput) (*model.Rating, error) {
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.Store.Providers.GetByID(ctx, providerID); err != nil {
		return nil, err
	}

	ok, err := s.Store.Bookings.HasCompleted(ctx, providerID, p.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Validation("rating requires a completed session with this provider")
	}

	r := &model.Rating{
		ProviderID: providerID,
		ClientID:   p.UserID,
		Score:      in.Score,
		Comment:    in.Comment,
	}
	if err := s.Store.Ratings.Upsert(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// AverageRating — nil, если оценок нет.
func (s *RatingService) AverageRating(ctx context.Context, providerID uuid.UUID) (*float64, error) {
	return s.Store.Ratings.Average(ctx, providerID)
}

func (s *RatingService) StatsFor(ctx context.Context, providerID uuid.UUID) (ProviderStats, error) {
	if _, err := s.Store.Providers.GetByID(ctx, providerID); err != nil {
		return ProviderStats{}, err
	}
	counts, err := s.Store.Bookings.CountForProvider(ctx, providerID)
	if err != nil {
		return ProviderStats{}, err
	}
	avg, err := s.Store.Ratings.Average(ctx, providerID)
	if err != nil {
		return ProviderStats{}, err
	}
	return ProviderStats{
		TotalBookings:     counts.Total,
		CompletedBookings: counts.Completed,
		AverageRating:     avg,
	}, nil
}

func (s *RatingService) List(ctx context.Context, providerID uuid.UUID) ([]model.Rating, error) {
	return s.Store.Ratings.ListByProvider(ctx, providerID)
}
