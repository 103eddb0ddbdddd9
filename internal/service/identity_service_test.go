package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/consulting-platform/internal/domain"
)

func TestRegisterUserDefaultsToClient(t *testing.T) {
	e := newEnv(t)
	svc := NewIdentityService(e.deps)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, RegisterUserInput{Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	p, err := svc.RegisterUser(ctx, RegisterUserInput{Email: "New@Example.com", DisplayName: " Ivan ", ContactPhone: "+7 900 111-22-33"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleClient, p.Role)
	assert.Equal(t, "new@example.com", p.User.Email)
	assert.Equal(t, "Ivan", p.User.DisplayName)
	assert.Equal(t, "79001112233", p.User.ContactPhone)

	// повторная регистрация не сбрасывает роль
	_, err = svc.SetRole(ctx, e.admin, p.User.ID, SetRoleInput{Role: domain.RoleProvider})
	require.NoError(t, err)
	again, err := svc.RegisterUser(ctx, RegisterUserInput{Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, p.User.ID, again.User.ID)
	assert.Equal(t, domain.RoleProvider, again.Role)
}

func TestSetRoleAdminOnly(t *testing.T) {
	e := newEnv(t)
	svc := NewIdentityService(e.deps)
	ctx := context.Background()

	_, err := svc.SetRole(ctx, e.client, e.other.UserID, SetRoleInput{Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, domain.ErrDenied)

	_, err = svc.SetRole(ctx, e.admin, e.other.UserID, SetRoleInput{Role: "root"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.SetRole(ctx, e.admin, e.other.UserID, SetRoleInput{Role: domain.RoleAdmin})
	require.NoError(t, err)

	principal, err := svc.PrincipalByEmail(ctx, "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: e.other.UserID, Role: domain.RoleAdmin}, principal)

	_, err = svc.PrincipalByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
