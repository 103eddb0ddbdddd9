// Package identity выпускает и проверяет JWT и превращает их в Principal.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Leganyst/consulting-platform/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenManager отвечает за выпуск и проверку access-токенов (HS256).
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue выпускает токен с sub = userID и ролью.
func (m *TokenManager) Issue(p domain.Principal) (string, time.Time, error) {
	if p.UserID == uuid.Nil {
		return "", time.Time{}, domain.Validation("user id is required")
	}
	if !p.Role.Valid() {
		return "", time.Time{}, domain.Validation("unknown role %q", p.Role)
	}

	now := m.now()
	exp := now.Add(m.ttl)
	claims := jwt.MapClaims{
		"sub":  p.UserID.String(),
		"role": string(p.Role),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, exp, nil
}

// Parse проверяет подпись и срок и возвращает Principal.
func (m *TokenManager) Parse(raw string) (domain.Principal, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Principal{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	role, _ := claims["role"].(string)
	p := domain.Principal{UserID: userID, Role: domain.Role(role)}
	if !p.Role.Valid() {
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, role)
	}
	return p, nil
}
