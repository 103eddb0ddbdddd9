package domain

import "time"

// Clock — источник текущего времени, подменяется в тестах.
type Clock interface {
	Now() time.Time
}

// SystemClock всегда отдаёт UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc адаптирует функцию к Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// FixedClock возвращает Clock, который всегда отдаёт t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
