package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/db/dbtest"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/payment"
	"github.com/Leganyst/consulting-platform/internal/queue"
	"github.com/Leganyst/consulting-platform/internal/repository"
	"github.com/Leganyst/consulting-platform/internal/service"
)

type sent struct {
	recipient, subject, body string
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (s *recordingSender) Notify(_ context.Context, recipient, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, sent{recipient, subject, body})
	return nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m.recipient)
	}
	return out
}

type harness struct {
	store  *repository.Store
	router *queue.Router
	sender *recordingSender
	deps   service.Deps
	client *model.User
	prov   *model.Provider
	tier   *model.ServiceTier
}

func newHarness(t *testing.T) harness {
	t.Helper()
	ctx := context.Background()
	store := repository.NewStore(dbtest.Open(t))

	client, err := store.Users.UpsertUser(ctx, "client@example.com", "Client", "")
	require.NoError(t, err)
	provUser, err := store.Users.UpsertUser(ctx, "prov@example.com", "Prov", "")
	require.NoError(t, err)
	prov := &model.Provider{UserID: provUser.ID, DisplayName: "Anna", Specialization: "tax", TimeZone: "UTC"}
	require.NoError(t, store.Providers.Create(ctx, prov))
	tier := &model.ServiceTier{Name: "basic", Price: decimal.NewFromInt(90)}
	require.NoError(t, store.Tiers.Create(ctx, tier))

	deps := service.Deps{Store: store, Logger: zap.NewNop()}
	sender := &recordingSender{}
	router := queue.NewRouter(nil, zap.NewNop())
	NewHandlers(
		store,
		service.NewProjectService(deps),
		service.NewPaymentService(deps, payment.ManualGateway{}),
		sender,
		zap.NewNop(),
	).Register(router)

	return harness{store: store, router: router, sender: sender, deps: deps, client: client, prov: prov, tier: tier}
}

func task(t *testing.T, kind queue.Kind, payload any) queue.Task {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return queue.Task{ID: uuid.New(), Kind: kind, Payload: raw}
}

func TestAllKindsRegistered(t *testing.T) {
	h := newHarness(t)
	assert.ElementsMatch(t, []queue.Kind{
		queue.KindBookingCreated,
		queue.KindBookingCancelled,
		queue.KindEvaluateCompletion,
		queue.KindProjectCompleted,
		queue.KindPaymentSettle,
		queue.KindPaymentCompleted,
		queue.KindNotify,
	}, h.router.Kinds())
}

func TestBookingNotificationsGoToBothParties(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	project := &model.Project{ClientID: h.client.ID, ServiceTierID: h.tier.ID, Name: "p", Status: model.ProjectStatusInProgress}
	require.NoError(t, h.store.Projects.Create(ctx, project))
	start := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)
	b := &model.Booking{ProviderID: h.prov.ID, ProjectID: project.ID, ClientID: h.client.ID, StartsAt: start, EndsAt: start.Add(time.Hour)}
	require.NoError(t, h.store.Bookings.Create(ctx, b))

	require.NoError(t, h.router.Handle(ctx, task(t, queue.KindBookingCreated, queue.BookingPayload{BookingID: b.ID})))
	assert.Equal(t, []string{"client@example.com", "prov@example.com"}, h.sender.recipients())

	require.NoError(t, h.router.Handle(ctx, task(t, queue.KindBookingCancelled, queue.BookingPayload{BookingID: b.ID, Reason: "ill"})))
	require.Len(t, h.sender.msgs, 4)
	assert.Contains(t, h.sender.msgs[2].body, "Reason: ill.")
	assert.Contains(t, h.sender.msgs[2].body, "04.03.2030 10:00 UTC")
}

func TestSettleTaskStartsProject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client := domain.Principal{UserID: h.client.ID, Role: domain.RoleClient}

	project, pay, err := service.NewProjectService(h.deps).Purchase(ctx, client, service.PurchaseInput{ServiceTierID: h.tier.ID, Name: "audit"})
	require.NoError(t, err)

	settle := task(t, queue.KindPaymentSettle, queue.PaymentPayload{PaymentID: pay.ID})
	require.NoError(t, h.router.Handle(ctx, settle))
	// повторная доставка
	require.NoError(t, h.router.Handle(ctx, settle))

	got, err := h.store.Projects.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusInProgress, got.Status)

	require.NoError(t, h.router.Handle(ctx, task(t, queue.KindPaymentCompleted, queue.PaymentPayload{PaymentID: pay.ID})))
	require.Len(t, h.sender.msgs, 1)
	assert.Equal(t, "Payment received", h.sender.msgs[0].subject)
}

func TestEvaluateTaskCompletesProject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	project := &model.Project{
		ClientID:      h.client.ID,
		ServiceTierID: h.tier.ID,
		Name:          "p",
		Status:        model.ProjectStatusInProgress,
		Progress:      map[string]any{"a": "completed", "b": "completed"},
	}
	require.NoError(t, h.store.Projects.Create(ctx, project))

	require.NoError(t, h.router.Handle(ctx, task(t, queue.KindEvaluateCompletion, queue.ProjectPayload{ProjectID: project.ID})))
	got, err := h.store.Projects.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCompleted, got.Status)

	require.NoError(t, h.router.Handle(ctx, task(t, queue.KindProjectCompleted, queue.ProjectPayload{ProjectID: project.ID})))
	assert.Equal(t, []string{"client@example.com"}, h.sender.recipients())
}

func TestDomainFailuresAreNotRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.NoError(t, h.router.Handle(ctx, task(t, queue.KindEvaluateCompletion, queue.ProjectPayload{ProjectID: uuid.New()})))
	assert.NoError(t, h.router.Handle(ctx, task(t, queue.KindBookingCreated, queue.BookingPayload{BookingID: uuid.New()})))
	assert.NoError(t, h.router.Handle(ctx, queue.Task{ID: uuid.New(), Kind: queue.KindPaymentSettle, Payload: []byte("{broken")}))
	assert.NoError(t, h.router.Handle(ctx, task(t, queue.KindNotify, queue.NotifyPayload{UserID: uuid.New(), Subject: "x"})))
	assert.Empty(t, h.sender.msgs)
}

func TestSenderFailureDoesNotFailTask(t *testing.T) {
	h := newHarness(t)
	h.sender.err = errors.New("smtp down")

	err := h.router.Handle(context.Background(), task(t, queue.KindNotify, queue.NotifyPayload{UserID: h.client.ID, Subject: "hi", Body: "there"}))
	assert.NoError(t, err)
}

func TestMonthlyGate(t *testing.T) {
	now := time.Date(2030, 4, 1, 3, 0, 0, 0, time.UTC)
	calls := 0
	gate := MonthlyGate(domain.ClockFunc(func() time.Time { return now }), func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	ctx := context.Background()

	_, err := gate(ctx)
	require.NoError(t, err)
	_, err = gate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "once per month")

	now = now.Add(24 * time.Hour)
	_, _ = gate(ctx)
	assert.Equal(t, 1, calls, "only on the first day")

	now = time.Date(2030, 5, 1, 0, 30, 0, 0, time.UTC)
	_, _ = gate(ctx)
	assert.Equal(t, 2, calls)
}

func TestSchedulerRunsJobsUntilCancelled(t *testing.T) {
	var (
		mu   sync.Mutex
		runs int
	)
	job := Job{Name: "tick", Interval: 10 * time.Millisecond, Run: func(context.Context) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		runs++
		if runs == 2 {
			return 0, errors.New("boom")
		}
		return 1, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewScheduler(zap.NewNop(), job, Job{Name: "off"}).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 3
	}, time.Second, 5*time.Millisecond, "a failing run does not stop the loop")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
