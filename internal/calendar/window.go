package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Weekday — день недели с понедельника: 0 = понедельник, 6 = воскресенье.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// WeekdayOf переводит time.Weekday (воскресенье = 0) в отсчёт с понедельника.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// ParseClock разбирает время суток "15:04" или "15:04:05" в смещение от полуночи.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return SinceMidnight(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// SinceMidnight — настенное время t как смещение от полуночи того же дня.
func SinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond())
}

// FormatClock печатает смещение от полуночи как "15:04".
func FormatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

// Window — еженедельное окно доступности в часовом поясе провайдера.
type Window struct {
	Day   Weekday
	Start time.Duration
	End   time.Duration
}

func (w Window) Validate() error {
	if !w.Day.Valid() {
		return fmt.Errorf("day of week must be in 0..6, got %d", int(w.Day))
	}
	// окно не переходит через полночь: самый поздний конец 23:59:59
	if w.Start < 0 || w.End >= 24*time.Hour {
		return fmt.Errorf("window bounds out of day")
	}
	if w.Start >= w.End {
		return fmt.Errorf("window start %s must be before end %s", FormatClock(w.Start), FormatClock(w.End))
	}
	return nil
}

// Contains сообщает, целиком ли интервал лежит внутри окна.
// Интервал, пересекающий локальную полночь, не помещается ни в одно окно.
func (w Window) Contains(tr TimeRange, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	start := tr.Start.In(loc)
	end := tr.End.In(loc)

	if WeekdayOf(start) != w.Day {
		return false
	}
	if !sameDate(start, end) {
		return false
	}
	return w.Start <= SinceMidnight(start) && SinceMidnight(end) <= w.End
}

// On возвращает абсолютный интервал окна в дату date (по календарю loc).
func (w Window) On(date time.Time, loc *time.Location) TimeRange {
	if loc == nil {
		loc = time.UTC
	}
	d := date.In(loc)
	midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return TimeRange{
		Start: wallClock(midnight, w.Start),
		End:   wallClock(midnight, w.End),
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// wallClock прибавляет смещение по настенным часам, а не по абсолютному времени,
// чтобы переходы на летнее время не сдвигали границы окна.
func wallClock(midnight time.Time, offset time.Duration) time.Time {
	h := int(offset / time.Hour)
	m := int(offset % time.Hour / time.Minute)
	s := int(offset % time.Minute / time.Second)
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(), h, m, s, 0, midnight.Location())
}
