package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/model"
)

func booking(status model.BookingStatus) model.Booking {
	start := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	return model.Booking{
		ID:       uuid.New(),
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
		Status:   status,
	}
}

func TestBookingTransitionTable(t *testing.T) {
	now := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)

	type transition func(model.Booking) (model.Booking, error)
	transitions := map[string]transition{
		"start":    StartBooking,
		"complete": CompleteBooking,
		"cancel": func(b model.Booking) (model.Booking, error) {
			return CancelBooking(b, now, "reason")
		},
	}

	legal := map[model.BookingStatus]map[string]model.BookingStatus{
		model.BookingStatusScheduled: {
			"start":  model.BookingStatusInProgress,
			"cancel": model.BookingStatusCancelled,
		},
		model.BookingStatusInProgress: {
			"complete": model.BookingStatusCompleted,
			"cancel":   model.BookingStatusCancelled,
		},
		model.BookingStatusCompleted: {},
		model.BookingStatusCancelled: {},
	}

	for from, allowed := range legal {
		for name, fn := range transitions {
			got, err := fn(booking(from))
			want, ok := allowed[name]
			if ok {
				require.NoError(t, err, "%s from %s", name, from)
				assert.Equal(t, want, got.Status, "%s from %s", name, from)
				continue
			}
			require.Error(t, err, "%s from %s must fail", name, from)
			assert.True(t, errors.Is(err, domain.ErrIllegalTransition))
			assert.Equal(t, from, got.Status, "status must not change on failure")
		}
	}
}

func TestCancelBookingKeepsSessionTimes(t *testing.T) {
	now := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	b := booking(model.BookingStatusScheduled)

	got, err := CancelBooking(b, now, "  client asked  ")
	require.NoError(t, err)

	assert.True(t, got.StartsAt.Equal(b.StartsAt))
	assert.True(t, got.EndsAt.Equal(b.EndsAt))
	require.NotNil(t, got.CancelledAt)
	assert.True(t, got.CancelledAt.Equal(now))
	assert.Equal(t, "client asked", got.CancelReason)
}

func TestCancelBookingTwiceFails(t *testing.T) {
	now := time.Now().UTC()
	b, err := CancelBooking(booking(model.BookingStatusScheduled), now, "")
	require.NoError(t, err)

	_, err = CancelBooking(b, now, "")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestAuthorizeBooking(t *testing.T) {
	parties := BookingParties{ClientUserID: uuid.New(), ProviderUserID: uuid.New()}
	client := domain.Principal{UserID: parties.ClientUserID, Role: domain.RoleClient}
	provider := domain.Principal{UserID: parties.ProviderUserID, Role: domain.RoleProvider}
	stranger := domain.Principal{UserID: uuid.New(), Role: domain.RoleClient}
	admin := domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin}

	assert.NoError(t, AuthorizeBookingCancel(client, parties))
	assert.NoError(t, AuthorizeBookingCancel(provider, parties))
	assert.NoError(t, AuthorizeBookingCancel(admin, parties))
	assert.ErrorIs(t, AuthorizeBookingCancel(stranger, parties), domain.ErrDenied)

	assert.NoError(t, AuthorizeBookingProgress(provider, parties))
	assert.NoError(t, AuthorizeBookingProgress(admin, parties))
	assert.ErrorIs(t, AuthorizeBookingProgress(client, parties), domain.ErrDenied)
}
