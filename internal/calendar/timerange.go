package calendar

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrSlotDuration     = errors.New("slot duration must be positive")
)

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт интервал; пустые и вывернутые интервалы запрещены.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

func (tr TimeRange) Duration() time.Duration { return tr.End.Sub(tr.Start) }

// Overlaps — пересечение полуоткрытых интервалов; касание концами не считается.
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// SplitToTimeSlots разбивает интервал на слоты фиксированной длительности.
// alignMinutes > 0 — выравнивание начала по ближайшей отметке, кратной alignMinutes.
// "Хвост" меньшей длительности, чем slotDuration, отбрасывается.
func SplitToTimeSlots(
	tr TimeRange,
	slotDuration time.Duration,
	alignMinutes int,
) ([]TimeRange, error) {
	if slotDuration <= 0 {
		return nil, ErrSlotDuration
	}
	if !tr.End.After(tr.Start) {
		return []TimeRange{}, nil
	}

	start := tr.Start
	if alignMinutes > 0 {
		aligned := start.Truncate(time.Minute)
		if aligned.Before(start) {
			aligned = aligned.Add(time.Minute)
		}
		if rem := aligned.Minute() % alignMinutes; rem != 0 {
			aligned = aligned.Add(time.Duration(alignMinutes-rem) * time.Minute)
		}
		start = aligned
	}

	slots := []TimeRange{}
	for cur := start; !cur.Add(slotDuration).After(tr.End); cur = cur.Add(slotDuration) {
		slots = append(slots, TimeRange{Start: cur, End: cur.Add(slotDuration)})
	}
	return slots, nil
}

// Subtract вырезает из tr все занятые интервалы и возвращает свободные куски по порядку.
func Subtract(tr TimeRange, busy []TimeRange) []TimeRange {
	sorted := make([]TimeRange, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	free := []TimeRange{}
	cur := tr.Start
	for _, b := range sorted {
		if !tr.Overlaps(b) {
			continue
		}
		if b.Start.After(cur) {
			free = append(free, TimeRange{Start: cur, End: b.Start})
		}
		if b.End.After(cur) {
			cur = b.End
		}
	}
	if cur.Before(tr.End) {
		free = append(free, TimeRange{Start: cur, End: tr.End})
	}
	return free
}
