package calendar

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func equalTimeRangeSlices(a, b []TimeRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			return false
		}
	}
	return true
}

func TestNewTimeRange_RejectsEmptyAndInverted(t *testing.T) {
	start := mustTime(t, 2025, 1, 6, 10, 0)

	if _, err := NewTimeRange(start, start); err == nil {
		t.Fatalf("expected error for empty range")
	}
	if _, err := NewTimeRange(start, start.Add(-time.Hour)); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if _, err := NewTimeRange(start, start.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSplitToTimeSlots_Basic(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2025, 1, 1, 10, 0), End: mustTime(t, 2025, 1, 1, 12, 0)}

	slots, err := SplitToTimeSlots(tr, 30*time.Minute, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []TimeRange{
		{Start: mustTime(t, 2025, 1, 1, 10, 0), End: mustTime(t, 2025, 1, 1, 10, 30)},
		{Start: mustTime(t, 2025, 1, 1, 10, 30), End: mustTime(t, 2025, 1, 1, 11, 0)},
		{Start: mustTime(t, 2025, 1, 1, 11, 0), End: mustTime(t, 2025, 1, 1, 11, 30)},
		{Start: mustTime(t, 2025, 1, 1, 11, 30), End: mustTime(t, 2025, 1, 1, 12, 0)},
	}
	if !equalTimeRangeSlices(slots, expected) {
		t.Fatalf("expected %+v, got %+v", expected, slots)
	}
}

func TestSplitToTimeSlots_TailDropped(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2025, 1, 1, 10, 0), End: mustTime(t, 2025, 1, 1, 11, 10)}

	slots, err := SplitToTimeSlots(tr, 30*time.Minute, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
}

func TestSplitToTimeSlots_AlignMinutes(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2025, 1, 1, 10, 10), End: mustTime(t, 2025, 1, 1, 11, 40)}

	slots, err := SplitToTimeSlots(tr, 30*time.Minute, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(mustTime(t, 2025, 1, 1, 10, 30)) {
		t.Fatalf("expected first slot to start at 10:30, got %v", slots[0].Start)
	}
}

func TestSplitToTimeSlots_InvalidDuration(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2025, 1, 1, 10, 0), End: mustTime(t, 2025, 1, 1, 11, 0)}

	if _, err := SplitToTimeSlots(tr, 0, 0); err == nil {
		t.Fatalf("expected error for zero slot duration, got nil")
	}
}

func TestOverlaps_TouchingIsNotConflict(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2025, 1, 1, 10, 0), End: mustTime(t, 2025, 1, 1, 11, 0)}
	before := TimeRange{Start: mustTime(t, 2025, 1, 1, 9, 0), End: mustTime(t, 2025, 1, 1, 10, 0)}
	after := TimeRange{Start: mustTime(t, 2025, 1, 1, 11, 0), End: mustTime(t, 2025, 1, 1, 12, 0)}
	partial := TimeRange{Start: mustTime(t, 2025, 1, 1, 10, 30), End: mustTime(t, 2025, 1, 1, 11, 30)}

	if tr.Overlaps(before) || tr.Overlaps(after) {
		t.Fatalf("touching endpoints must not overlap")
	}
	if !tr.Overlaps(partial) {
		t.Fatalf("expected partial overlap")
	}
}

func TestOverlaps_IsSymmetric(t *testing.T) {
	a := TimeRange{Start: mustTime(t, 2025, 1, 1, 10, 0), End: mustTime(t, 2025, 1, 1, 12, 0)}
	b := TimeRange{Start: mustTime(t, 2025, 1, 1, 11, 0), End: mustTime(t, 2025, 1, 1, 11, 30)}

	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Fatalf("containment must overlap both ways")
	}
}

func TestSubtract(t *testing.T) {
	day := TimeRange{Start: mustTime(t, 2025, 1, 6, 9, 0), End: mustTime(t, 2025, 1, 6, 17, 0)}
	busy := []TimeRange{
		{Start: mustTime(t, 2025, 1, 6, 13, 0), End: mustTime(t, 2025, 1, 6, 14, 0)},
		{Start: mustTime(t, 2025, 1, 6, 10, 0), End: mustTime(t, 2025, 1, 6, 11, 0)},
		{Start: mustTime(t, 2025, 1, 6, 16, 30), End: mustTime(t, 2025, 1, 6, 18, 0)},
		{Start: mustTime(t, 2025, 1, 5, 10, 0), End: mustTime(t, 2025, 1, 5, 11, 0)},
		{Start: mustTime(t, 2025, 1, 6, 8, 0), End: mustTime(t, 2025, 1, 6, 9, 0)},
	}

	free := Subtract(day, busy)

	expected := []TimeRange{
		{Start: mustTime(t, 2025, 1, 6, 9, 0), End: mustTime(t, 2025, 1, 6, 10, 0)},
		{Start: mustTime(t, 2025, 1, 6, 11, 0), End: mustTime(t, 2025, 1, 6, 13, 0)},
		{Start: mustTime(t, 2025, 1, 6, 14, 0), End: mustTime(t, 2025, 1, 6, 16, 30)},
	}
	if !equalTimeRangeSlices(free, expected) {
		t.Fatalf("expected %+v, got %+v", expected, free)
	}

	var total time.Duration
	for _, f := range free {
		total += f.Duration()
	}
	if total != 5*time.Hour+30*time.Minute {
		t.Fatalf("expected 5h30m free, got %v", total)
	}
}
