package domain

import (
	"errors"
	"fmt"
)

// Kind — машинный код доменной ошибки.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindOutOfAvailability Kind = "out_of_availability"
	KindSlotConflict      Kind = "slot_conflict"
	KindIllegalTransition Kind = "illegal_transition"
	KindNotFound          Kind = "not_found"
	KindDenied            Kind = "authorization_denied"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal_error"
)

// Error — типизированная доменная ошибка: код + человекочитаемая причина.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает только по Kind, поэтому errors.Is(err, ErrSlotConflict)
// срабатывает для любой причины.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Сентинелы для errors.Is.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrOutOfAvailability = &Error{Kind: KindOutOfAvailability}
	ErrSlotConflict      = &Error{Kind: KindSlotConflict}
	ErrIllegalTransition = &Error{Kind: KindIllegalTransition}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrDenied            = &Error{Kind: KindDenied}
	ErrConflict          = &Error{Kind: KindConflict}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func OutOfAvailability(reason string) *Error {
	return &Error{Kind: KindOutOfAvailability, Reason: reason}
}

func SlotConflict(reason string) *Error {
	return &Error{Kind: KindSlotConflict, Reason: reason}
}

// IllegalTransition описывает запрещённый переход из состояния from.
func IllegalTransition(entity, from, action string) *Error {
	return &Error{
		Kind:   KindIllegalTransition,
		Reason: fmt.Sprintf("cannot %s %s in status %s", action, entity, from),
	}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Reason: entity + " not found"}
}

func Denied(reason string) *Error {
	return &Error{Kind: KindDenied, Reason: reason}
}

func Conflict(reason string) *Error {
	return &Error{Kind: KindConflict, Reason: reason}
}

// KindOf возвращает код доменной ошибки или KindInternal для всего остального.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
