package lifecycle

import (
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/model"
)

// SettlePayment применяет ответ шлюза: pending -> completed | failed,
// completed -> refunded. Повтор того же статуса — no-op (changed = false).
func SettlePayment(p model.Payment, status model.PaymentStatus) (model.Payment, bool, error) {
	if p.Status == status {
		return p, false, nil
	}

	legal := false
	switch p.Status {
	case model.PaymentStatusPending:
		legal = status == model.PaymentStatusCompleted || status == model.PaymentStatusFailed
	case model.PaymentStatusCompleted:
		legal = status == model.PaymentStatusRefunded
	}
	if !legal {
		return p, false, domain.IllegalTransition("payment", string(p.Status), "set "+string(status))
	}

	p.Status = status
	return p, true, nil
}
