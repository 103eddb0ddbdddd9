// Package lifecycle содержит чистые функции переходов состояний брони и проекта.
// Функции не трогают хранилище: принимают сущность и возвращают её новую версию
// или доменную ошибку.
package lifecycle

import (
	"strings"
	"time"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/model"
)

const bookingEntity = "booking"

// StartBooking: scheduled -> in_progress.
func StartBooking(b model.Booking) (model.Booking, error) {
	if b.Status != model.BookingStatusScheduled {
		return b, domain.IllegalTransition(bookingEntity, string(b.Status), "start")
	}
	b.Status = model.BookingStatusInProgress
	return b, nil
}

// CompleteBooking: in_progress -> completed.
func CompleteBooking(b model.Booking) (model.Booking, error) {
	if b.Status != model.BookingStatusInProgress {
		return b, domain.IllegalTransition(bookingEntity, string(b.Status), "complete")
	}
	b.Status = model.BookingStatusCompleted
	return b, nil
}

// CancelBooking: scheduled | in_progress -> cancelled.
// Время сессии не меняется; фиксируются только момент и причина отмены.
func CancelBooking(b model.Booking, at time.Time, reason string) (model.Booking, error) {
	if b.Status != model.BookingStatusScheduled && b.Status != model.BookingStatusInProgress {
		return b, domain.IllegalTransition(bookingEntity, string(b.Status), "cancel")
	}
	b.Status = model.BookingStatusCancelled
	b.CancelledAt = &at
	b.CancelReason = strings.TrimSpace(reason)
	return b, nil
}
