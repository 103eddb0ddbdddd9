package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/queue"
)

func TestBookingRemindersSentOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	jobs := NewJobsService(e.withClock(monday), JobsPolicy{})

	e.book(t, at(10), at(11), model.BookingStatusScheduled)
	e.book(t, at(12), at(13), model.BookingStatusCancelled)
	e.book(t, at(30), at(31), model.BookingStatusScheduled)

	n, err := jobs.SendBookingReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	// клиенту и консультанту
	assert.Equal(t, []string{string(queue.KindNotify), string(queue.KindNotify)}, e.pendingKinds(t))

	n, err = jobs.SendBookingReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStaleProjectReminders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	n, err := NewJobsService(e.withClock(monday), JobsPolicy{}).RemindStaleProjects(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "project started three days ago is not stale")

	later := NewJobsService(e.withClock(monday.Add(5 * 24 * time.Hour)), JobsPolicy{})
	n, err = later.RemindStaleProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = later.RemindStaleProjects(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "reminded at most once a week")
}

func TestExpirePendingPayments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	project, pay, err := NewProjectService(e.deps).Purchase(ctx, e.client, PurchaseInput{ServiceTierID: e.tier.ID, Name: "late"})
	require.NoError(t, err)

	n, err := NewJobsService(e.withClock(time.Now().UTC()), JobsPolicy{}).ExpirePendingPayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "fresh payment is kept")

	n, err = NewJobsService(e.withClock(time.Now().UTC().Add(48 * time.Hour)), JobsPolicy{}).ExpirePendingPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.store.Payments.GetByID(ctx, pay.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, got.Status)

	p, err := e.store.Projects.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCancelled, p.Status)

	untouched, err := e.store.Projects.GetByID(ctx, e.project.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusInProgress, untouched.Status)
}

func TestMonthlyReportGoesToAdmins(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	projects := NewProjectService(e.withClock(monday))
	_, err := projects.RecordProgress(ctx, e.client, e.project.ID, ProgressInput{Step: "all", Status: "completed"})
	require.NoError(t, err)
	done, err := projects.EvaluateCompletion(ctx, e.project.ID)
	require.NoError(t, err)
	require.True(t, done)

	reportAt := time.Date(2030, 4, 1, 6, 0, 0, 0, time.UTC)
	n, err := NewJobsService(e.withClock(reportAt), JobsPolicy{}).MonthlyReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	events, err := e.store.Events.ListPending(ctx, time.Now().Add(time.Hour), 100)
	require.NoError(t, err)
	var report *queue.NotifyPayload
	for _, ev := range events {
		if ev.EventType != string(queue.KindNotify) {
			continue
		}
		var p queue.NotifyPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		report = &p
	}
	require.NotNil(t, report)
	assert.Equal(t, e.admin.UserID, report.UserID)
	assert.Contains(t, report.Body, "March 2030")
	assert.Contains(t, report.Body, "1 projects completed")
}
