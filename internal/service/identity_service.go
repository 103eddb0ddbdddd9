package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/lifecycle"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

type RegisterUserInput struct {
	Email        string `json:"email" validate:"required,email,max=255"`
	DisplayName  string `json:"display_name" validate:"max=255"`
	ContactPhone string `json:"contact_phone" validate:"max=32"`
}

type SetRoleInput struct {
	Role domain.Role `json:"role" validate:"required,oneof=client provider admin"`
}

// Profile — пользователь вместе с его ролью.
type Profile struct {
	User model.User  `json:"user"`
	Role domain.Role `json:"role"`
}

// IdentityService реализует регистрацию пользователей и управление ролями.
type IdentityService struct {
	Deps
}

func NewIdentityService(d Deps) *IdentityService {
	return &IdentityService{Deps: d.withDefaults()}
}

// RegisterUser создаёт пользователя по email или возвращает существующего, обновляя контактные данные.
// Новый пользователь получает роль client.
func (s *IdentityService) RegisterUser(ctx context.Context, in RegisterUserInput) (*Profile, error) {
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}

	var out *Profile
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		u, err := tx.Users.UpsertUser(ctx, in.Email, strings.TrimSpace(in.DisplayName), in.ContactPhone)
		if err != nil {
			return err
		}
		role, err := roleOf(ctx, tx, u.ID)
		if errors.Is(err, domain.ErrNotFound) {
			role = domain.RoleClient
			err = tx.Users.SetRole(ctx, u.ID, string(role))
		}
		if err != nil {
			return err
		}
		out = &Profile{User: *u, Role: role}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("user registered",
		zap.String("user_id", out.User.ID.String()),
		zap.String("role", string(out.Role)),
	)
	return out, nil
}

// SetRole назначает роль пользователю. Только для админов.
func (s *IdentityService) SetRole(ctx context.Context, p domain.Principal, userID uuid.UUID, in SetRoleInput) (*Profile, error) {
	if err := lifecycle.AuthorizeAdmin(p); err != nil {
		return nil, err
	}
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Users.SetRole(ctx, u.ID, string(in.Role)); err != nil {
		return nil, err
	}
	s.Logger.Info("role changed",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(in.Role)),
		zap.String("by", p.UserID.String()),
	)
	return &Profile{User: *u, Role: in.Role}, nil
}

// GetProfile возвращает профиль пользователя.
func (s *IdentityService) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	u, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	role, err := roleOf(ctx, s.Store, u.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if role == "" {
		role = domain.RoleClient
	}
	return &Profile{User: *u, Role: role}, nil
}

// PrincipalByEmail находит пользователя и собирает для него Principal (выпуск токенов).
func (s *IdentityService) PrincipalByEmail(ctx context.Context, email string) (domain.Principal, error) {
	u, err := s.Store.Users.FindByEmail(ctx, email)
	if err != nil {
		return domain.Principal{}, err
	}
	profile, err := s.GetProfile(ctx, u.ID)
	if err != nil {
		return domain.Principal{}, err
	}
	return domain.Principal{UserID: u.ID, Role: profile.Role}, nil
}

func roleOf(ctx context.Context, store *repository.Store, userID uuid.UUID) (domain.Role, error) {
	code, err := store.Users.GetRole(ctx, userID)
	if err != nil {
		return "", err
	}
	role := domain.Role(code)
	if !role.Valid() {
		return "", domain.Validation("user has unknown role %q", code)
	}
	return role, nil
}
