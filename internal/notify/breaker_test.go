package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakySender struct {
	err   error
	calls int
}

func (s *flakySender) Notify(context.Context, string, string, string) error {
	s.calls++
	return s.err
}

func TestBreakerOpensAfterFailuresAndRecovers(t *testing.T) {
	next := &flakySender{err: errors.New("smtp down")}
	b := NewBreakerSender(next, BreakerConfig{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Minute,
		HalfOpenMaxRequests: 1,
	})
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := b.Notify(ctx, "a@b.c", "s", "b"); err == nil {
			t.Fatalf("expected failure on call %d", i)
		}
	}

	if err := b.Notify(ctx, "a@b.c", "s", "b"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("open circuit must not call sender, calls=%d", next.calls)
	}

	now = now.Add(time.Minute)
	next.err = nil
	if err := b.Notify(ctx, "a@b.c", "s", "b"); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %s, want closed", got)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	next := &flakySender{err: errors.New("down")}
	b := NewBreakerSender(next, BreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second, HalfOpenMaxRequests: 1})
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	_ = b.Notify(context.Background(), "r", "s", "b")
	if b.State() != StateOpen {
		t.Fatalf("expected open after failure threshold")
	}
	now = now.Add(time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open after timeout")
	}
	_ = b.Notify(context.Background(), "r", "s", "b")
	if b.State() != StateOpen {
		t.Fatalf("failed probe must reopen circuit")
	}
}
