package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/lifecycle"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/payment"
	"github.com/Leganyst/consulting-platform/internal/queue"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

type SettlementInput struct {
	ChargeRef string              `json:"charge_ref" validate:"required,max=255"`
	Status    model.PaymentStatus `json:"status" validate:"required,oneof=completed failed refunded"`
}

type PaymentService struct {
	Deps
	gateway payment.Gateway
}

func NewPaymentService(d Deps, gateway payment.Gateway) *PaymentService {
	if gateway == nil {
		gateway = payment.ManualGateway{}
	}
	return &PaymentService{Deps: d.withDefaults(), gateway: gateway}
}

// Settle списывает pending-платёж через шлюз. Вызов шлюза идёт вне транзакции;
// уже обработанный платёж пропускается.
func (s *PaymentService) Settle(ctx context.Context, paymentID uuid.UUID) error {
	pay, err := s.Store.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if pay.Status != model.PaymentStatusPending {
		return nil
	}

	status, err := s.gateway.Charge(ctx, pay.ChargeRef, pay.Amount)
	if err != nil {
		return fmt.Errorf("charge %s: %w", pay.ChargeRef, err)
	}
	if status == model.PaymentStatusPending {
		// шлюз ответит колбэком позже
		return nil
	}
	return s.apply(ctx, func(tx *repository.Store) (*model.Payment, error) {
		return tx.Payments.GetByIDForUpdate(ctx, paymentID)
	}, status)
}

// ApplySettlement принимает колбэк шлюза по ссылке на списание.
func (s *PaymentService) ApplySettlement(ctx context.Context, in SettlementInput) error {
	if err := s.Validator.Struct(in); err != nil {
		return err
	}
	return s.apply(ctx, func(tx *repository.Store) (*model.Payment, error) {
		return tx.Payments.GetByChargeRefForUpdate(ctx, in.ChargeRef)
	}, in.Status)
}

// Refund: completed -> refunded, только админ.
func (s *PaymentService) Refund(ctx context.Context, p domain.Principal, paymentID uuid.UUID) error {
	if err := lifecycle.AuthorizeAdmin(p); err != nil {
		return err
	}
	return s.apply(ctx, func(tx *repository.Store) (*model.Payment, error) {
		return tx.Payments.GetByIDForUpdate(ctx, paymentID)
	}, model.PaymentStatusRefunded)
}

func (s *PaymentService) apply(
	ctx context.Context,
	load func(tx *repository.Store) (*model.Payment, error),
	status model.PaymentStatus,
) error {
	now := s.Clock.Now()
	var (
		settled model.Payment
		changed bool
	)
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		pay, err := load(tx)
		if err != nil {
			return err
		}
		settled, changed, err = lifecycle.SettlePayment(*pay, status)
		if err != nil || !changed {
			return err
		}

		// временная ссылка заменяется постоянной после ответа шлюза
		ref := ""
		if strings.HasPrefix(pay.ChargeRef, model.TempChargePrefix) && status == model.PaymentStatusCompleted {
			ref = "ch_" + strings.TrimPrefix(pay.ChargeRef, model.TempChargePrefix)
		}
		if err := tx.Payments.UpdateStatus(ctx, pay.ID, settled.Status, ref); err != nil {
			return err
		}

		switch settled.Status {
		case model.PaymentStatusCompleted:
			if settled.ProjectID != nil {
				project, err := tx.Projects.GetByIDForUpdate(ctx, *settled.ProjectID)
				if err != nil {
					return err
				}
				if project.Status == model.ProjectStatusPending {
					started, err := lifecycle.StartProject(*project, now)
					if err != nil {
						return err
					}
					if err := tx.Projects.Save(ctx, &started); err != nil {
						return err
					}
				}
			}
			return s.Tasks.Enqueue(ctx, tx, queue.KindPaymentCompleted, queue.PaymentPayload{PaymentID: settled.ID})
		case model.PaymentStatusFailed:
			return s.Tasks.Enqueue(ctx, tx, queue.KindNotify, queue.NotifyPayload{
				UserID:  settled.UserID,
				Subject: "Payment failed",
				Body:    fmt.Sprintf("Payment of %s could not be processed.", settled.Amount.StringFixed(2)),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	if changed {
		s.Logger.Info("payment settled",
			zap.String("payment_id", settled.ID.String()),
			zap.String("status", string(settled.Status)),
		)
	}
	return nil
}

// List — платежи принципала.
func (s *PaymentService) List(ctx context.Context, p domain.Principal, page calendar.PageRequest) (calendar.Page[model.Payment], error) {
	items, total, err := s.Store.Payments.ListByUser(ctx, p.UserID, page)
	if err != nil {
		return calendar.Page[model.Payment]{}, err
	}
	return calendar.NewPage(items, page, total), nil
}
