package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/db/dbtest"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

// monday — понедельник; часы сессий считаются от полуночи UTC.
var monday = time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

func at(h float64) time.Time { return monday.Add(time.Duration(h * float64(time.Hour))) }

type env struct {
	store    *repository.Store
	deps     Deps
	admin    domain.Principal
	client   domain.Principal
	other    domain.Principal
	prov     domain.Principal
	provider *model.Provider
	tier     *model.ServiceTier
	project  *model.Project
}

// newEnv: консультант с окном пн 09:00–17:00 UTC, клиент с проектом в работе,
// часы стоят на воскресенье перед понедельником.
func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	store := repository.NewStore(dbtest.Open(t))

	user := func(email string, role domain.Role) domain.Principal {
		u, err := store.Users.UpsertUser(ctx, email, email, "")
		require.NoError(t, err)
		require.NoError(t, store.Users.SetRole(ctx, u.ID, string(role)))
		return domain.Principal{UserID: u.ID, Role: role}
	}
	admin := user("admin@example.com", domain.RoleAdmin)
	client := user("client@example.com", domain.RoleClient)
	other := user("other@example.com", domain.RoleClient)
	prov := user("prov@example.com", domain.RoleProvider)

	provider := &model.Provider{UserID: prov.UserID, DisplayName: "Anna", Specialization: "tax", IsAvailable: true, TimeZone: "UTC"}
	require.NoError(t, store.Providers.Create(ctx, provider))
	window := model.NewAvailabilityWindow(provider.ID, calendar.Window{
		Day:   calendar.Monday,
		Start: 9 * time.Hour,
		End:   17 * time.Hour,
	})
	require.NoError(t, store.Windows.Create(ctx, &window))

	tier := &model.ServiceTier{Name: "basic", Price: decimal.NewFromInt(150)}
	require.NoError(t, store.Tiers.Create(ctx, tier))

	started := monday.Add(-72 * time.Hour)
	project := &model.Project{
		ClientID:      client.UserID,
		ServiceTierID: tier.ID,
		Name:          "audit",
		Status:        model.ProjectStatusInProgress,
		StartedAt:     &started,
	}
	require.NoError(t, store.Projects.Create(ctx, project))

	return env{
		store: store,
		deps: Deps{
			Store: store,
			Clock: domain.FixedClock(monday.Add(-24 * time.Hour)),
		},
		admin:    admin,
		client:   client,
		other:    other,
		prov:     prov,
		provider: provider,
		tier:     tier,
		project:  project,
	}
}

func (e env) withClock(now time.Time) Deps {
	d := e.deps
	d.Clock = domain.FixedClock(now)
	return d
}

// pendingKinds — виды задач, ожидающих отправки из outbox.
func (e env) pendingKinds(t *testing.T) []string {
	t.Helper()
	events, err := e.store.Events.ListPending(context.Background(), time.Now().Add(time.Hour), 1000)
	require.NoError(t, err)
	kinds := make([]string, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.EventType)
	}
	return kinds
}

func (e env) book(t *testing.T, start, end time.Time, status model.BookingStatus) *model.Booking {
	t.Helper()
	b := &model.Booking{
		ProviderID: e.provider.ID,
		ProjectID:  e.project.ID,
		ClientID:   e.client.UserID,
		StartsAt:   start,
		EndsAt:     end,
		Status:     status,
	}
	require.NoError(t, e.store.Bookings.Create(context.Background(), b))
	return b
}
