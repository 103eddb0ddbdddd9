package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/lifecycle"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

type WindowInput struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	Start     string `json:"start_time" validate:"required,clock"`
	End       string `json:"end_time" validate:"required,clock"`
}

// window разбирает ввод в календарное окно (start < end).
func (in WindowInput) window() (calendar.Window, error) {
	start, err := calendar.ParseClock(in.Start)
	if err != nil {
		return calendar.Window{}, domain.Validation("%v", err)
	}
	end, err := calendar.ParseClock(in.End)
	if err != nil {
		return calendar.Window{}, domain.Validation("%v", err)
	}
	w := calendar.Window{Day: calendar.Weekday(in.DayOfWeek), Start: start, End: end}
	if err := w.Validate(); err != nil {
		return calendar.Window{}, domain.Validation("%v", err)
	}
	return w, nil
}

// AvailabilityService — хранилище недельных окон консультанта.
type AvailabilityService struct {
	Deps
}

func NewAvailabilityService(d Deps) *AvailabilityService {
	return &AvailabilityService{Deps: d.withDefaults()}
}

func (s *AvailabilityService) authorize(ctx context.Context, p domain.Principal, providerID uuid.UUID) error {
	provider, err := s.Store.Providers.GetByID(ctx, providerID)
	if err != nil {
		return err
	}
	return lifecycle.AuthorizeProviderManage(p, provider.UserID)
}

// AddWindow; второе окно на тот же день недели — Conflict.
func (s *AvailabilityService) AddWindow(
	ctx context.Context,
	p domain.Principal,
	providerID uuid.UUID,
	in WindowInput,
) (*model.AvailabilityWindow, error) {
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	w, err := in.window()
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, providerID); err != nil {
		return nil, err
	}

	row := model.NewAvailabilityWindow(providerID, w)
	if err := s.Store.Windows.Create(ctx, &row); err != nil {
		if domain.KindOf(err) == domain.KindConflict {
			return nil, domain.Conflict("provider already has a window on " + w.Day.String())
		}
		return nil, err
	}
	return &row, nil
}

func (s *AvailabilityService) UpdateWindow(
	ctx context.Context,
	p domain.Principal,
	windowID uuid.UUID,
	in WindowInput,
) (*model.AvailabilityWindow, error) {
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	w, err := in.window()
	if err != nil {
		return nil, err
	}

	var out *model.AvailabilityWindow
	err = s.Store.Transaction(ctx, func(tx *repository.Store) error {
		row, err := tx.Windows.GetByID(ctx, windowID)
		if err != nil {
			return err
		}
		provider, err := tx.Providers.GetByID(ctx, row.ProviderID)
		if err != nil {
			return err
		}
		if err := lifecycle.AuthorizeProviderManage(p, provider.UserID); err != nil {
			return err
		}

		updated := model.NewAvailabilityWindow(row.ProviderID, w)
		updated.ID = row.ID
		updated.CreatedAt = row.CreatedAt
		if err := tx.Windows.Update(ctx, &updated); err != nil {
			return err
		}
		out = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AvailabilityService) DeleteWindow(ctx context.Context, p domain.Principal, windowID uuid.UUID) error {
	row, err := s.Store.Windows.GetByID(ctx, windowID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, p, row.ProviderID); err != nil {
		return err
	}
	return s.Store.Windows.Delete(ctx, windowID)
}

func (s *AvailabilityService) ListWindows(ctx context.Context, providerID uuid.UUID) ([]model.AvailabilityWindow, error) {
	if _, err := s.Store.Providers.GetByID(ctx, providerID); err != nil {
		return nil, err
	}
	return s.Store.Windows.ListByProvider(ctx, providerID)
}
