// Package queue — фоновые задачи: outbox в БД, доставка через RabbitMQ
// и идемпотентная обработка с дедупликацией в Redis.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type Kind string

const (
	KindBookingCreated     Kind = "booking.created"
	KindBookingCancelled   Kind = "booking.cancelled"
	KindEvaluateCompletion Kind = "project.evaluate_completion"
	KindProjectCompleted   Kind = "project.completed"
	KindPaymentSettle      Kind = "payment.settle"
	KindPaymentCompleted   Kind = "payment.completed"
	KindNotify             Kind = "notification.send"
)

// Task — одна доставка задачи обработчику. ID совпадает с ID outbox-строки.
type Task struct {
	ID      uuid.UUID
	Kind    Kind
	Payload json.RawMessage
}

// Decode разбирает payload задачи в v.
func (t Task) Decode(v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Kind, err)
	}
	return nil
}

type BookingPayload struct {
	BookingID uuid.UUID `json:"booking_id"`
	Reason    string    `json:"reason,omitempty"`
}

type ProjectPayload struct {
	ProjectID uuid.UUID `json:"project_id"`
}

type PaymentPayload struct {
	PaymentID uuid.UUID `json:"payment_id"`
}

type NotifyPayload struct {
	UserID  uuid.UUID `json:"user_id"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
}
