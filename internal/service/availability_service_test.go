package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/consulting-platform/internal/domain"
)

func TestAddWindowValidation(t *testing.T) {
	e := newEnv(t)
	svc := NewAvailabilityService(e.deps)
	ctx := context.Background()

	tests := []struct {
		name string
		in   WindowInput
	}{
		{"start after end", WindowInput{DayOfWeek: 2, Start: "18:00", End: "10:00"}},
		{"start equals end", WindowInput{DayOfWeek: 2, Start: "10:00", End: "10:00"}},
		{"bad clock", WindowInput{DayOfWeek: 2, Start: "25:00", End: "26:00"}},
		{"day out of range", WindowInput{DayOfWeek: 7, Start: "09:00", End: "10:00"}},
		{"missing end", WindowInput{DayOfWeek: 2, Start: "09:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddWindow(ctx, e.prov, e.provider.ID, tt.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestAddWindowUniquePerDay(t *testing.T) {
	e := newEnv(t)
	svc := NewAvailabilityService(e.deps)
	ctx := context.Background()

	w, err := svc.AddWindow(ctx, e.prov, e.provider.ID, WindowInput{DayOfWeek: 1, Start: "09:00", End: "12:00"})
	require.NoError(t, err)
	assert.Equal(t, 1, w.DayOfWeek)

	_, err = svc.AddWindow(ctx, e.prov, e.provider.ID, WindowInput{DayOfWeek: 1, Start: "13:00", End: "15:00"})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, err.Error(), "Tuesday")

	_, err = svc.AddWindow(ctx, e.other, e.provider.ID, WindowInput{DayOfWeek: 3, Start: "09:00", End: "12:00"})
	assert.ErrorIs(t, err, domain.ErrDenied)

	windows, err := svc.ListWindows(ctx, e.provider.ID)
	require.NoError(t, err)
	assert.Len(t, windows, 2)
}

func TestUpdateAndDeleteWindow(t *testing.T) {
	e := newEnv(t)
	svc := NewAvailabilityService(e.deps)
	booking := NewBookingService(e.deps)
	ctx := context.Background()

	windows, err := svc.ListWindows(ctx, e.provider.ID)
	require.NoError(t, err)
	require.Len(t, windows, 1)

	_, err = svc.UpdateWindow(ctx, e.prov, windows[0].ID, WindowInput{DayOfWeek: 0, Start: "12:00", End: "14:00"})
	require.NoError(t, err)

	d, err := booking.CanBook(ctx, e.provider.ID, at(10), at(11))
	require.NoError(t, err)
	assert.Equal(t, domain.KindOutOfAvailability, d.Kind)
	d, err = booking.CanBook(ctx, e.provider.ID, at(12), at(14))
	require.NoError(t, err)
	assert.True(t, d.Bookable)

	require.NoError(t, svc.DeleteWindow(ctx, e.prov, windows[0].ID))
	d, err = booking.CanBook(ctx, e.provider.ID, at(12), at(13))
	require.NoError(t, err)
	assert.Equal(t, domain.KindOutOfAvailability, d.Kind)
}
