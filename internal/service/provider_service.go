package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/lifecycle"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

type ProviderInput struct {
	DisplayName    string          `json:"display_name" validate:"required,max=255"`
	Specialization string          `json:"specialization" validate:"required,max=100"`
	Bio            string          `json:"bio" validate:"max=5000"`
	HourlyRate     decimal.Decimal `json:"hourly_rate"`
	TimeZone       string          `json:"time_zone" validate:"omitempty,iana_tz"`
}

func (in ProviderInput) check() error {
	if in.HourlyRate.IsNegative() {
		return domain.Validation("hourly_rate must not be negative")
	}
	return nil
}

// ProviderService — каталог консультантов.
type ProviderService struct {
	Deps
}

func NewProviderService(d Deps) *ProviderService {
	return &ProviderService{Deps: d.withDefaults()}
}

// Register заводит профиль консультанта для принципала и выдаёт ему роль provider.
func (s *ProviderService) Register(ctx context.Context, p domain.Principal, in ProviderInput) (*model.Provider, error) {
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}

	tz := in.TimeZone
	if tz == "" {
		tz = "UTC"
	}

	provider := &model.Provider{
		UserID:         p.UserID,
		DisplayName:    strings.TrimSpace(in.DisplayName),
		Specialization: strings.ToLower(strings.TrimSpace(in.Specialization)),
		Bio:            in.Bio,
		HourlyRate:     in.HourlyRate,
		IsAvailable:    true,
		TimeZone:       tz,
	}
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.GetByID(ctx, p.UserID); err != nil {
			return err
		}
		if err := tx.Providers.Create(ctx, provider); err != nil {
			return err
		}
		if p.IsAdmin() {
			return nil
		}
		return tx.Users.SetRole(ctx, p.UserID, string(domain.RoleProvider))
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("provider registered",
		zap.String("provider_id", provider.ID.String()),
		zap.String("user_id", p.UserID.String()),
	)
	return provider, nil
}

func (s *ProviderService) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	return s.Store.Providers.GetByID(ctx, id)
}

func (s *ProviderService) List(
	ctx context.Context,
	filter repository.ProviderFilter,
	page calendar.PageRequest,
) (calendar.Page[model.Provider], error) {
	items, total, err := s.Store.Providers.List(ctx, filter, page)
	if err != nil {
		return calendar.Page[model.Provider]{}, err
	}
	return calendar.NewPage(items, page, total), nil
}

func (s *ProviderService) UpdateProfile(ctx context.Context, p domain.Principal, id uuid.UUID, in ProviderInput) (*model.Provider, error) {
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}

	var out *model.Provider
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		provider, err := tx.Providers.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.AuthorizeProviderManage(p, provider.UserID); err != nil {
			return err
		}

		provider.DisplayName = strings.TrimSpace(in.DisplayName)
		provider.Specialization = strings.ToLower(strings.TrimSpace(in.Specialization))
		provider.Bio = in.Bio
		provider.HourlyRate = in.HourlyRate
		if in.TimeZone != "" {
			provider.TimeZone = in.TimeZone
		}
		if err := tx.Providers.UpdateProfile(ctx, provider); err != nil {
			return err
		}
		out = provider
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
