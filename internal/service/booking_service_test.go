package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/queue"
)

func (e env) bookingInput(start, end time.Time) CreateBookingInput {
	return CreateBookingInput{
		ProviderID: e.provider.ID,
		ProjectID:  e.project.ID,
		StartsAt:   start,
		EndsAt:     end,
	}
}

func TestCreateBookingPersistsScheduledAndEnqueues(t *testing.T) {
	e := newEnv(t)
	svc := NewBookingService(e.deps)

	b, err := svc.Create(context.Background(), e.client, e.bookingInput(at(10), at(11)))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusScheduled, b.Status)
	assert.Equal(t, e.client.UserID, b.ClientID)
	assert.Equal(t, []string{string(queue.KindBookingCreated)}, e.pendingKinds(t))
}

func TestCreateBookingRejections(t *testing.T) {
	e := newEnv(t)
	svc := NewBookingService(e.deps)
	ctx := context.Background()
	_, err := svc.Create(ctx, e.client, e.bookingInput(at(10), at(11)))
	require.NoError(t, err)

	tests := []struct {
		name  string
		p     domain.Principal
		start time.Time
		end   time.Time
		want  *domain.Error
	}{
		{"end before start", e.client, at(12), at(11), domain.ErrValidation},
		{"empty range", e.client, at(12), at(12), domain.ErrValidation},
		{"in the past", e.client, at(-30), at(-29), domain.ErrValidation},
		{"before window", e.client, at(8), at(9.5), domain.ErrOutOfAvailability},
		{"after window", e.client, at(16.5), at(17.5), domain.ErrOutOfAvailability},
		{"no window on tuesday", e.client, at(34), at(35), domain.ErrOutOfAvailability},
		{"crosses midnight", e.client, at(23), at(25), domain.ErrOutOfAvailability},
		{"overlaps existing", e.client, at(10.5), at(11.5), domain.ErrSlotConflict},
		{"contains existing", e.client, at(9), at(12), domain.ErrSlotConflict},
		{"foreign project", e.other, at(13), at(14), domain.ErrDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.p, e.bookingInput(tt.start, tt.end))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTouchingAndCancelledBookingsDoNotConflict(t *testing.T) {
	e := newEnv(t)
	svc := NewBookingService(e.deps)
	ctx := context.Background()

	first, err := svc.Create(ctx, e.client, e.bookingInput(at(10), at(11)))
	require.NoError(t, err)

	_, err = svc.Create(ctx, e.client, e.bookingInput(at(11), at(12)))
	require.NoError(t, err, "touching endpoints are not a conflict")
	_, err = svc.Create(ctx, e.client, e.bookingInput(at(9), at(10)))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, e.client, first.ID, "changed plans")
	require.NoError(t, err)

	d, err := svc.CanBook(ctx, e.provider.ID, at(10), at(11))
	require.NoError(t, err)
	assert.True(t, d.Bookable)

	_, err = svc.Create(ctx, e.client, e.bookingInput(at(10), at(11)))
	require.NoError(t, err, "cancelled bookings are ignored on creation")
}

func TestCanBookDecisions(t *testing.T) {
	e := newEnv(t)
	svc := NewBookingService(e.deps)
	ctx := context.Background()
	e.book(t, at(13), at(14), model.BookingStatusInProgress)

	d, err := svc.CanBook(ctx, e.provider.ID, at(13.5), at(14.5))
	require.NoError(t, err)
	assert.False(t, d.Bookable)
	assert.Equal(t, domain.KindSlotConflict, d.Kind)

	d, err = svc.CanBook(ctx, e.provider.ID, at(7), at(8))
	require.NoError(t, err)
	assert.Equal(t, domain.KindOutOfAvailability, d.Kind)

	d, err = svc.CanBook(ctx, e.provider.ID, at(14), at(15))
	require.NoError(t, err)
	assert.Equal(t, Decision{Bookable: true}, d)

	_, err = svc.CanBook(ctx, e.provider.ID, at(15), at(14))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWindowsUseProviderTimeZone(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	psvc := NewProviderService(e.deps)

	_, err := psvc.UpdateProfile(ctx, e.prov, e.provider.ID, ProviderInput{
		DisplayName:    "Anna",
		Specialization: "tax",
		TimeZone:       "Europe/Moscow",
	})
	require.NoError(t, err)

	svc := NewBookingService(e.deps)
	// 09:00 по Москве — 06:00 UTC.
	d, err := svc.CanBook(ctx, e.provider.ID, at(6), at(7))
	require.NoError(t, err)
	assert.True(t, d.Bookable)

	d, err = svc.CanBook(ctx, e.provider.ID, at(14), at(15))
	require.NoError(t, err)
	assert.Equal(t, domain.KindOutOfAvailability, d.Kind)
}

func TestBookingTransitionsAndAuthorization(t *testing.T) {
	e := newEnv(t)
	svc := NewBookingService(e.deps)
	ctx := context.Background()

	b, err := svc.Create(ctx, e.client, e.bookingInput(at(10), at(11)))
	require.NoError(t, err)

	_, err = svc.Start(ctx, e.client, b.ID)
	assert.ErrorIs(t, err, domain.ErrDenied)
	_, err = svc.Complete(ctx, e.prov, b.ID)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	started, err := svc.Start(ctx, e.prov, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusInProgress, started.Status)

	_, err = svc.Cancel(ctx, e.other, b.ID, "")
	assert.ErrorIs(t, err, domain.ErrDenied)

	done, err := svc.Complete(ctx, e.admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, done.Status)

	_, err = svc.Cancel(ctx, e.client, b.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	got, err := svc.Get(ctx, e.client, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, got.Status)
	assert.True(t, got.StartsAt.Equal(at(10)))

	_, err = svc.Get(ctx, e.other, b.ID)
	assert.ErrorIs(t, err, domain.ErrDenied)
}

func TestCancelKeepsTimestamps(t *testing.T) {
	e := newEnv(t)
	svc := NewBookingService(e.deps)
	ctx := context.Background()

	b, err := svc.Create(ctx, e.client, e.bookingInput(at(10), at(11)))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, e.prov, b.ID, "ill")
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, "ill", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)
	assert.True(t, cancelled.StartsAt.Equal(at(10)))
	assert.True(t, cancelled.EndsAt.Equal(at(11)))
	assert.Contains(t, e.pendingKinds(t), string(queue.KindBookingCancelled))
}

func TestSetProviderUnavailableCancelsFutureScheduled(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := monday.Add(-24 * time.Hour)

	past := e.book(t, now.Add(-2*time.Hour), now.Add(-time.Hour), model.BookingStatusScheduled)
	running := e.book(t, at(9), at(10), model.BookingStatusInProgress)
	first := e.book(t, at(10), at(11), model.BookingStatusScheduled)
	second := e.book(t, at(12), at(13), model.BookingStatusScheduled)
	done := e.book(t, at(13), at(14), model.BookingStatusCompleted)

	svc := NewBookingService(e.deps)

	_, err := svc.SetProviderAvailability(ctx, e.other, e.provider.ID, false)
	require.ErrorIs(t, err, domain.ErrDenied)

	affected, err := svc.SetProviderAvailability(ctx, e.prov, e.provider.ID, false)
	require.NoError(t, err)
	require.Len(t, affected, 2)

	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, []uuid.UUID{affected[0].ID, affected[1].ID})
	for _, b := range affected {
		assert.Equal(t, model.BookingStatusCancelled, b.Status)
		assert.Equal(t, unavailableReason, b.CancelReason)
	}

	for id, want := range map[uuid.UUID]model.BookingStatus{
		past.ID:    model.BookingStatusScheduled,
		running.ID: model.BookingStatusInProgress,
		first.ID:   model.BookingStatusCancelled,
		done.ID:    model.BookingStatusCompleted,
	} {
		got, err := svc.Get(ctx, e.admin, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
		if id == done.ID {
			assert.Nil(t, got.CancelledAt)
			assert.Empty(t, got.CancelReason)
		}
	}

	kinds := e.pendingKinds(t)
	assert.Len(t, kinds, 2)

	d, err := svc.CanBook(ctx, e.provider.ID, at(15), at(16))
	require.NoError(t, err)
	assert.Equal(t, domain.KindOutOfAvailability, d.Kind)
	assert.Equal(t, "provider is unavailable", d.Reason)

	affected, err = svc.SetProviderAvailability(ctx, e.prov, e.provider.ID, true)
	require.NoError(t, err)
	assert.Empty(t, affected)
	d, err = svc.CanBook(ctx, e.provider.ID, at(15), at(16))
	require.NoError(t, err)
	assert.True(t, d.Bookable)
}

func TestConcurrentCreateSameSlot(t *testing.T) {
	e := newEnv(t)
	svc := NewBookingService(e.deps)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
		other     []error
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), e.client, e.bookingInput(at(10), at(11)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, domain.ErrSlotConflict):
				conflicts++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)

	active, err := e.store.Bookings.ListActiveOverlapping(context.Background(), e.provider.ID, calendar.TimeRange{Start: at(10), End: at(11)})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestFreeSlotsSkipsBusyTime(t *testing.T) {
	e := newEnv(t)
	e.book(t, at(10), at(11), model.BookingStatusScheduled)
	e.book(t, at(12), at(13), model.BookingStatusCancelled)

	slots, err := NewBookingService(e.deps).FreeSlots(context.Background(), e.provider.ID, monday, time.Hour)
	require.NoError(t, err)
	require.Len(t, slots, 7)
	assert.True(t, slots[0].Start.Equal(at(9)))
	assert.True(t, slots[1].Start.Equal(at(11)))
	assert.True(t, slots[2].Start.Equal(at(12)))
}
