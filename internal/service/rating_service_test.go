package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/model"
)

func TestRateRequiresCompletedSession(t *testing.T) {
	e := newEnv(t)
	svc := NewRatingService(e.deps)
	ctx := context.Background()

	_, err := svc.Rate(ctx, e.client, e.provider.ID, RateInput{Score: 5})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Rate(ctx, e.client, uuid.New(), RateInput{Score: 5})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	e.book(t, at(9), at(10), model.BookingStatusCompleted)
	for _, score := range []int{0, 6, -1} {
		_, err := svc.Rate(ctx, e.client, e.provider.ID, RateInput{Score: score})
		assert.ErrorIs(t, err, domain.ErrValidation, "score %d", score)
	}
}

func TestRatingAggregation(t *testing.T) {
	e := newEnv(t)
	svc := NewRatingService(e.deps)
	ctx := context.Background()

	avg, err := svc.AverageRating(ctx, e.provider.ID)
	require.NoError(t, err)
	assert.Nil(t, avg)

	e.book(t, at(9), at(10), model.BookingStatusCompleted)
	e.book(t, at(11), at(12), model.BookingStatusScheduled)

	_, err = svc.Rate(ctx, e.client, e.provider.ID, RateInput{Score: 5, Comment: "great"})
	require.NoError(t, err)
	// повторная оценка перезаписывает первую
	_, err = svc.Rate(ctx, e.client, e.provider.ID, RateInput{Score: 2})
	require.NoError(t, err)

	stats, err := svc.StatsFor(ctx, e.provider.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalBookings)
	assert.Equal(t, int64(1), stats.CompletedBookings)
	require.NotNil(t, stats.AverageRating)
	assert.InDelta(t, 2.0, *stats.AverageRating, 1e-9)

	ratings, err := svc.List(ctx, e.provider.ID)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, 2, ratings[0].Score)
}
