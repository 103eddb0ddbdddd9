package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/lifecycle"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/queue"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

const reminderTimeLayout = "02.01.2006 15:04 MST"

// JobsPolicy — пороги периодических задач; нулевые значения заменяются дефолтами.
type JobsPolicy struct {
	ReminderLead      time.Duration
	StaleProjectAfter time.Duration
	PendingPaymentTTL time.Duration
}

func (p JobsPolicy) withDefaults() JobsPolicy {
	if p.ReminderLead <= 0 {
		p.ReminderLead = 24 * time.Hour
	}
	if p.StaleProjectAfter <= 0 {
		p.StaleProjectAfter = 7 * 24 * time.Hour
	}
	if p.PendingPaymentTTL <= 0 {
		p.PendingPaymentTTL = 24 * time.Hour
	}
	return p
}

// JobsService — периодические задачи воркера. Уведомления уходят через outbox.
type JobsService struct {
	Deps
	policy JobsPolicy
}

func NewJobsService(d Deps, policy JobsPolicy) *JobsService {
	return &JobsService{Deps: d.withDefaults(), policy: policy.withDefaults()}
}

// SendBookingReminders напоминает о сессиях, начинающихся в пределах ReminderLead.
// Каждая бронь получает напоминание один раз.
func (s *JobsService) SendBookingReminders(ctx context.Context) (int, error) {
	now := s.Clock.Now()
	due, err := s.Store.Bookings.ListDueReminders(ctx, now, now.Add(s.policy.ReminderLead))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, b := range due {
		marked := false
		err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
			ok, err := tx.Bookings.MarkReminderSent(ctx, b.ID, now)
			if err != nil || !ok {
				return err
			}
			provider, err := tx.Providers.GetByID(ctx, b.ProviderID)
			if err != nil {
				return err
			}

			when := b.StartsAt.In(provider.Location()).Format(reminderTimeLayout)
			for _, userID := range []uuid.UUID{b.ClientID, provider.UserID} {
				err := s.Tasks.Enqueue(ctx, tx, queue.KindNotify, queue.NotifyPayload{
					UserID:  userID,
					Subject: "Upcoming session",
					Body:    fmt.Sprintf("Reminder: your session with %s starts at %s.", provider.DisplayName, when),
				})
				if err != nil {
					return err
				}
			}
			marked = true
			return nil
		})
		if err != nil {
			return sent, err
		}
		if marked {
			sent++
		}
	}
	if sent > 0 {
		s.Logger.Info("booking reminders sent", zap.Int("count", sent))
	}
	return sent, nil
}

// RemindStaleProjects напоминает клиентам о проектах, которые идут дольше StaleProjectAfter.
// Повторное напоминание не чаще того же интервала.
func (s *JobsService) RemindStaleProjects(ctx context.Context) (int, error) {
	now := s.Clock.Now()
	threshold := now.Add(-s.policy.StaleProjectAfter)
	stale, err := s.Store.Projects.ListStale(ctx, threshold, threshold)
	if err != nil {
		return 0, err
	}

	for _, p := range stale {
		err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
			if err := tx.Projects.MarkReminderSent(ctx, p.ID, now); err != nil {
				return err
			}
			return s.Tasks.Enqueue(ctx, tx, queue.KindNotify, queue.NotifyPayload{
				UserID:  p.ClientID,
				Subject: "Project update",
				Body:    fmt.Sprintf("Your project %q has been in progress for a while. Check its progress.", p.Name),
			})
		})
		if err != nil {
			return 0, err
		}
	}
	if len(stale) > 0 {
		s.Logger.Info("stale project reminders sent", zap.Int("count", len(stale)))
	}
	return len(stale), nil
}

// ExpirePendingPayments переводит зависшие платежи в failed и отменяет
// pending-проекты клиента.
func (s *JobsService) ExpirePendingPayments(ctx context.Context) (int, error) {
	now := s.Clock.Now()
	pending, err := s.Store.Payments.ListPendingBefore(ctx, now.Add(-s.policy.PendingPaymentTTL))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range pending {
		changed := false
		err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
			pay, err := tx.Payments.GetByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			failed, ok, err := lifecycle.SettlePayment(*pay, model.PaymentStatusFailed)
			if err != nil || !ok {
				// шлюз успел ответить между выборкой и блокировкой
				return nil
			}
			if err := tx.Payments.UpdateStatus(ctx, pay.ID, failed.Status, ""); err != nil {
				return err
			}

			projects, err := tx.Projects.ListPendingByClient(ctx, pay.UserID)
			if err != nil {
				return err
			}
			for _, project := range projects {
				cancelled, err := lifecycle.CancelProject(project)
				if err != nil {
					return err
				}
				if err := tx.Projects.Save(ctx, &cancelled); err != nil {
					return err
				}
			}

			changed = true
			return s.Tasks.Enqueue(ctx, tx, queue.KindNotify, queue.NotifyPayload{
				UserID:  pay.UserID,
				Subject: "Payment expired",
				Body:    fmt.Sprintf("Payment of %s was not completed in time and has been cancelled.", pay.Amount.StringFixed(2)),
			})
		})
		if err != nil {
			return expired, err
		}
		if changed {
			expired++
		}
	}
	if expired > 0 {
		s.Logger.Info("pending payments expired", zap.Int("count", expired))
	}
	return expired, nil
}

// MonthlyReport отправляет админам сводку за предыдущий календарный месяц (UTC).
func (s *JobsService) MonthlyReport(ctx context.Context) (int, error) {
	now := s.Clock.Now().UTC()
	to := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, -1, 0)

	completed, err := s.Store.Projects.CountCompletedBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}
	revenue, err := s.Store.Payments.SumCompletedBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}
	admins, err := s.Store.Users.ListByRole(ctx, string(domain.RoleAdmin))
	if err != nil {
		return 0, err
	}

	body := fmt.Sprintf("Report for %s: %d projects completed, revenue %s.",
		from.Format("January 2006"), completed, revenue.StringFixed(2))
	err = s.Store.Transaction(ctx, func(tx *repository.Store) error {
		for _, admin := range admins {
			err := s.Tasks.Enqueue(ctx, tx, queue.KindNotify, queue.NotifyPayload{
				UserID:  admin.ID,
				Subject: "Monthly report",
				Body:    body,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.Logger.Info("monthly report sent",
		zap.Int("admins", len(admins)),
		zap.Int64("completed_projects", completed),
		zap.String("revenue", revenue.StringFixed(2)),
	)
	return len(admins), nil
}
