package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Leganyst/consulting-platform/internal/domain"
)

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	p := domain.Principal{UserID: uuid.New(), Role: domain.RoleProvider}

	token, exp, err := m.Issue(p)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry must be in the future")
	}

	got, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != p {
		t.Fatalf("principal = %+v, want %+v", got, p)
	}
}

func TestParseRejectsExpiredAndForeign(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	p := domain.Principal{UserID: uuid.New(), Role: domain.RoleClient}

	token, _, err := m.Issue(p)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: got %v", err)
	}

	other := NewTokenManager("other", time.Minute)
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign secret: got %v", err)
	}
}

func TestParseRejectsUnknownRole(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": "root",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("unknown role: got %v", err)
	}
}

func TestIssueRejectsBadPrincipal(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	if _, _, err := m.Issue(domain.Principal{Role: domain.RoleAdmin}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("nil user: got %v", err)
	}
}
