package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/lifecycle"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/queue"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

type PurchaseInput struct {
	ServiceTierID uuid.UUID `json:"service_tier_id" validate:"required"`
	Name          string    `json:"name" validate:"required,max=200"`
}

type ProgressInput struct {
	Step   string `json:"step" validate:"required,max=100"`
	Status string `json:"status" validate:"required,max=50"`
}

type ProjectService struct {
	Deps
}

func NewProjectService(d Deps) *ProjectService {
	return &ProjectService{Deps: d.withDefaults()}
}

// Purchase создаёт проект в pending, платёж с временной ссылкой и задачу
// на списание в одной транзакции.
func (s *ProjectService) Purchase(ctx context.Context, p domain.Principal, in PurchaseInput) (*model.Project, *model.Payment, error) {
	if err := s.Validator.Struct(in); err != nil {
		return nil, nil, err
	}
	if p.Role != domain.RoleClient && !p.IsAdmin() {
		return nil, nil, domain.Denied("only clients can purchase service tiers")
	}

	var (
		project *model.Project
		payment *model.Payment
	)
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		tier, err := tx.Tiers.GetByID(ctx, in.ServiceTierID)
		if err != nil {
			return err
		}
		if !tier.IsActive {
			return domain.Validation("service tier %q is not available", tier.Name)
		}

		pending, err := tx.Projects.HasPendingForTier(ctx, p.UserID, tier.ID)
		if err != nil {
			return err
		}
		if pending {
			return domain.Conflict("purchase of this service tier is already awaiting payment")
		}

		if _, err := tx.Clients.EnsureByUserID(ctx, p.UserID); err != nil {
			return err
		}

		project = &model.Project{
			ClientID:      p.UserID,
			ServiceTierID: tier.ID,
			Name:          in.Name,
			Status:        model.ProjectStatusPending,
		}
		if err := tx.Projects.Create(ctx, project); err != nil {
			return err
		}

		projectID := project.ID
		payment = &model.Payment{
			UserID:    p.UserID,
			ProjectID: &projectID,
			Amount:    tier.Price,
			ChargeRef: model.TempChargePrefix + project.ID.String(),
			Status:    model.PaymentStatusPending,
		}
		if err := tx.Payments.Create(ctx, payment); err != nil {
			return err
		}
		return s.Tasks.Enqueue(ctx, tx, queue.KindPaymentSettle, queue.PaymentPayload{PaymentID: payment.ID})
	})
	if err != nil {
		return nil, nil, err
	}

	s.Logger.Info("service tier purchased",
		zap.String("project_id", project.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	return project, payment, nil
}

// authorizeParticipant: владелец проекта, админ или консультант с бронью по проекту.
func authorizeParticipant(ctx context.Context, tx *repository.Store, p domain.Principal, project *model.Project) error {
	if err := lifecycle.AuthorizeProjectOwner(p, project.ClientID); err == nil {
		return nil
	}
	if p.Role == domain.RoleProvider {
		provider, err := tx.Providers.GetByUserID(ctx, p.UserID)
		if err == nil {
			ok, err := tx.Bookings.ExistsForProjectAndProvider(ctx, project.ID, provider.ID)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
	}
	return domain.Denied("not a participant of this project")
}

func (s *ProjectService) Get(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Project, error) {
	project, err := s.Store.Projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeParticipant(ctx, s.Store, p, project); err != nil {
		return nil, err
	}
	return project, nil
}

// List — проекты клиента-принципала.
func (s *ProjectService) List(ctx context.Context, p domain.Principal, page calendar.PageRequest) (calendar.Page[model.Project], error) {
	items, total, err := s.Store.Projects.ListByClient(ctx, p.UserID, page)
	if err != nil {
		return calendar.Page[model.Project]{}, err
	}
	return calendar.NewPage(items, page, total), nil
}

// errUnchanged — apply ничего не изменил, сохранять проект не нужно.
var errUnchanged = errors.New("project unchanged")

// mutate применяет переход к проекту под блокировкой и сохраняет его.
func (s *ProjectService) mutate(
	ctx context.Context,
	id uuid.UUID,
	apply func(tx *repository.Store, project model.Project) (model.Project, error),
) (*model.Project, error) {
	var out model.Project
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		project, err := tx.Projects.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		out, err = apply(tx, *project)
		if errors.Is(err, errUnchanged) {
			out = *project
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Projects.Save(ctx, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Start: pending -> in_progress. Обычно вызывается после оплаты; вручную — только админ.
func (s *ProjectService) Start(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Project, error) {
	if err := lifecycle.AuthorizeAdmin(p); err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	return s.mutate(ctx, id, func(_ *repository.Store, project model.Project) (model.Project, error) {
		return lifecycle.StartProject(project, now)
	})
}

// RecordProgress обновляет шаг и ставит задачу оценки завершения в той же транзакции.
func (s *ProjectService) RecordProgress(ctx context.Context, p domain.Principal, id uuid.UUID, in ProgressInput) (*model.Project, error) {
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(tx *repository.Store, project model.Project) (model.Project, error) {
		if err := authorizeParticipant(ctx, tx, p, &project); err != nil {
			return project, err
		}
		updated, err := lifecycle.RecordProgress(project, in.Step, in.Status)
		if err != nil {
			return project, err
		}
		err = s.Tasks.Enqueue(ctx, tx, queue.KindEvaluateCompletion, queue.ProjectPayload{ProjectID: project.ID})
		return updated, err
	})
}

// EvaluateCompletion пересчитывает завершённость по текущему прогрессу.
// Возвращает true, если проект перешёл в completed.
func (s *ProjectService) EvaluateCompletion(ctx context.Context, id uuid.UUID) (bool, error) {
	now := s.Clock.Now()
	completed := false
	_, err := s.mutate(ctx, id, func(tx *repository.Store, project model.Project) (model.Project, error) {
		updated, changed := lifecycle.EvaluateCompletion(project, now)
		if !changed {
			return project, errUnchanged
		}
		completed = true
		err := s.Tasks.Enqueue(ctx, tx, queue.KindProjectCompleted, queue.ProjectPayload{ProjectID: project.ID})
		return updated, err
	})
	if err != nil {
		return false, err
	}
	if completed {
		s.Logger.Info("project completed by progress", zap.String("project_id", id.String()))
	}
	return completed, nil
}

// Complete: in_progress -> completed вручную, админ или консультант проекта.
func (s *ProjectService) Complete(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Project, error) {
	now := s.Clock.Now()
	return s.mutate(ctx, id, func(tx *repository.Store, project model.Project) (model.Project, error) {
		if !p.IsAdmin() {
			if p.Role != domain.RoleProvider {
				return project, domain.Denied("only a provider of the project or an admin can complete it")
			}
			if err := authorizeParticipant(ctx, tx, p, &project); err != nil {
				return project, err
			}
		}
		updated, err := lifecycle.CompleteProject(project, now)
		if err != nil {
			return project, err
		}
		err = s.Tasks.Enqueue(ctx, tx, queue.KindProjectCompleted, queue.ProjectPayload{ProjectID: project.ID})
		return updated, err
	})
}

// Cancel: pending | in_progress -> cancelled, владелец или админ.
func (s *ProjectService) Cancel(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Project, error) {
	return s.mutate(ctx, id, func(_ *repository.Store, project model.Project) (model.Project, error) {
		if err := lifecycle.AuthorizeProjectOwner(p, project.ClientID); err != nil {
			return project, err
		}
		return lifecycle.CancelProject(project)
	})
}

// ListTiers — активные тарифы.
func (s *ProjectService) ListTiers(ctx context.Context) ([]model.ServiceTier, error) {
	return s.Store.Tiers.ListActive(ctx)
}
