// Package payment — граница с платёжным шлюзом.
package payment

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Leganyst/consulting-platform/internal/model"
)

// Gateway списывает сумму по ссылке. Протокол конкретного шлюза вне ядра.
type Gateway interface {
	Charge(ctx context.Context, chargeRef string, amount decimal.Decimal) (model.PaymentStatus, error)
}

// ManualGateway подтверждает любое положительное списание.
// Для dev-окружения и ручного подтверждения оплат администратором.
type ManualGateway struct{}

func (ManualGateway) Charge(_ context.Context, chargeRef string, amount decimal.Decimal) (model.PaymentStatus, error) {
	if strings.TrimSpace(chargeRef) == "" || !amount.IsPositive() {
		return model.PaymentStatusFailed, nil
	}
	return model.PaymentStatusCompleted, nil
}

// GatewayFunc адаптирует функцию к Gateway.
type GatewayFunc func(ctx context.Context, chargeRef string, amount decimal.Decimal) (model.PaymentStatus, error)

func (f GatewayFunc) Charge(ctx context.Context, chargeRef string, amount decimal.Decimal) (model.PaymentStatus, error) {
	return f(ctx, chargeRef, amount)
}
