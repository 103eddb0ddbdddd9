// Package worker — обработчики фоновых задач и периодический планировщик.
package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/notify"
	"github.com/Leganyst/consulting-platform/internal/queue"
	"github.com/Leganyst/consulting-platform/internal/repository"
	"github.com/Leganyst/consulting-platform/internal/service"
)

const sessionTimeLayout = "02.01.2006 15:04 MST"

// Handlers исполняют задачи из outbox. Все обработчики идемпотентны:
// доставка at-least-once, повтор не меняет результат.
type Handlers struct {
	store    *repository.Store
	projects *service.ProjectService
	payments *service.PaymentService
	sender   notify.Sender
	logger   *zap.Logger
}

func NewHandlers(
	store *repository.Store,
	projects *service.ProjectService,
	payments *service.PaymentService,
	sender notify.Sender,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		store:    store,
		projects: projects,
		payments: payments,
		sender:   sender,
		logger:   logger,
	}
}

// Register вешает обработчики на все виды задач.
func (h *Handlers) Register(r *queue.Router) {
	r.Register(queue.KindBookingCreated, h.bookingCreated)
	r.Register(queue.KindBookingCancelled, h.bookingCancelled)
	r.Register(queue.KindEvaluateCompletion, h.evaluateCompletion)
	r.Register(queue.KindProjectCompleted, h.projectCompleted)
	r.Register(queue.KindPaymentSettle, h.paymentSettle)
	r.Register(queue.KindPaymentCompleted, h.paymentCompleted)
	r.Register(queue.KindNotify, h.notification)
}

// final отделяет доменные отказы от сбоев инфраструктуры: первые повторять
// бессмысленно, их только логируем.
func (h *Handlers) final(task queue.Task, err error) error {
	if err == nil {
		return nil
	}
	if kind := domain.KindOf(err); kind != domain.KindInternal {
		h.logger.Warn("task rejected",
			zap.String("task_id", task.ID.String()),
			zap.String("kind", string(task.Kind)),
			zap.String("reason", err.Error()),
		)
		return nil
	}
	return err
}

// send доставляет уведомление пользователю. Ошибка доставки только логируется.
func (h *Handlers) send(ctx context.Context, userID uuid.UUID, subject, body string) error {
	u, err := h.store.Users.GetByID(ctx, userID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			h.logger.Warn("notification recipient not found", zap.String("user_id", userID.String()))
			return nil
		}
		return err
	}
	if err := h.sender.Notify(ctx, u.Email, subject, body); err != nil {
		h.logger.Error("failed to send notification",
			zap.String("user_id", userID.String()),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
	return nil
}

func (h *Handlers) bookingParties(ctx context.Context, bookingID uuid.UUID) (client, provider uuid.UUID, text string, err error) {
	b, err := h.store.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return uuid.Nil, uuid.Nil, "", err
	}
	p, err := h.store.Providers.GetByID(ctx, b.ProviderID)
	if err != nil {
		return uuid.Nil, uuid.Nil, "", err
	}
	when := b.StartsAt.In(p.Location()).Format(sessionTimeLayout)
	return b.ClientID, p.UserID, fmt.Sprintf("session with %s at %s", p.DisplayName, when), nil
}

func (h *Handlers) bookingCreated(ctx context.Context, task queue.Task) error {
	var p queue.BookingPayload
	if err := task.Decode(&p); err != nil {
		return h.final(task, domain.Validation("%v", err))
	}
	client, provider, what, err := h.bookingParties(ctx, p.BookingID)
	if err != nil {
		return h.final(task, err)
	}
	if err := h.send(ctx, client, "Session booked", "Your "+what+" is booked."); err != nil {
		return err
	}
	return h.send(ctx, provider, "New booking", "New "+what+".")
}

func (h *Handlers) bookingCancelled(ctx context.Context, task queue.Task) error {
	var p queue.BookingPayload
	if err := task.Decode(&p); err != nil {
		return h.final(task, domain.Validation("%v", err))
	}
	client, provider, what, err := h.bookingParties(ctx, p.BookingID)
	if err != nil {
		return h.final(task, err)
	}
	body := "The " + what + " was cancelled."
	if p.Reason != "" {
		body += " Reason: " + p.Reason + "."
	}
	if err := h.send(ctx, client, "Session cancelled", body); err != nil {
		return err
	}
	return h.send(ctx, provider, "Session cancelled", body)
}

func (h *Handlers) evaluateCompletion(ctx context.Context, task queue.Task) error {
	var p queue.ProjectPayload
	if err := task.Decode(&p); err != nil {
		return h.final(task, domain.Validation("%v", err))
	}
	_, err := h.projects.EvaluateCompletion(ctx, p.ProjectID)
	return h.final(task, err)
}

func (h *Handlers) projectCompleted(ctx context.Context, task queue.Task) error {
	var p queue.ProjectPayload
	if err := task.Decode(&p); err != nil {
		return h.final(task, domain.Validation("%v", err))
	}
	project, err := h.store.Projects.GetByID(ctx, p.ProjectID)
	if err != nil {
		return h.final(task, err)
	}
	return h.send(ctx, project.ClientID, "Project completed",
		fmt.Sprintf("Your project %q is completed.", project.Name))
}

func (h *Handlers) paymentSettle(ctx context.Context, task queue.Task) error {
	var p queue.PaymentPayload
	if err := task.Decode(&p); err != nil {
		return h.final(task, domain.Validation("%v", err))
	}
	return h.final(task, h.payments.Settle(ctx, p.PaymentID))
}

func (h *Handlers) paymentCompleted(ctx context.Context, task queue.Task) error {
	var p queue.PaymentPayload
	if err := task.Decode(&p); err != nil {
		return h.final(task, domain.Validation("%v", err))
	}
	pay, err := h.store.Payments.GetByID(ctx, p.PaymentID)
	if err != nil {
		return h.final(task, err)
	}
	return h.send(ctx, pay.UserID, "Payment received",
		fmt.Sprintf("Payment of %s received. Your project has started.", pay.Amount.StringFixed(2)))
}

func (h *Handlers) notification(ctx context.Context, task queue.Task) error {
	var p queue.NotifyPayload
	if err := task.Decode(&p); err != nil {
		return h.final(task, domain.Validation("%v", err))
	}
	return h.send(ctx, p.UserID, p.Subject, p.Body)
}
