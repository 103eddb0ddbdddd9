package notify

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("notification circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

type BreakerConfig struct {
	// Сколько ошибок подряд открывает цепь.
	FailureThreshold int
	// Сколько успехов в half-open закрывает цепь.
	SuccessThreshold int
	// Через сколько открытая цепь пробует half-open.
	Timeout time.Duration
	// Одновременных пробных запросов в half-open.
	HalfOpenMaxRequests int
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 3,
	}
}

// BreakerSender оборачивает Sender: при серии отказов канала доставки
// дальнейшие вызовы сразу возвращают ErrCircuitOpen.
type BreakerSender struct {
	next Sender
	cfg  BreakerConfig
	now  func() time.Time

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	halfOpen      int
	lastStateTime time.Time
}

func NewBreakerSender(next Sender, cfg BreakerConfig) *BreakerSender {
	return &BreakerSender{
		next:          next,
		cfg:           cfg,
		now:           time.Now,
		lastStateTime: time.Now(),
	}
}

func (b *BreakerSender) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

func (b *BreakerSender) Notify(ctx context.Context, recipient, subject, body string) error {
	b.mu.Lock()
	b.advance()
	switch b.state {
	case StateOpen:
		b.mu.Unlock()
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.halfOpen >= b.cfg.HalfOpenMaxRequests {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.halfOpen++
	}
	b.mu.Unlock()

	err := b.next.Notify(ctx, recipient, subject, body)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure()
	} else {
		b.onSuccess()
	}
	return err
}

// advance выполняет переходы по времени и счётчикам. Вызывается под mu.
func (b *BreakerSender) advance() {
	now := b.now()
	switch b.state {
	case StateOpen:
		if now.Sub(b.lastStateTime) >= b.cfg.Timeout {
			b.setState(StateHalfOpen, now)
		}
	case StateHalfOpen:
		if b.successes >= b.cfg.SuccessThreshold {
			b.setState(StateClosed, now)
		}
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.setState(StateOpen, now)
		}
	}
}

func (b *BreakerSender) setState(s State, now time.Time) {
	b.state = s
	b.failures = 0
	b.successes = 0
	b.halfOpen = 0
	b.lastStateTime = now
}

func (b *BreakerSender) onFailure() {
	b.failures++
	if b.state == StateHalfOpen {
		b.setState(StateOpen, b.now())
	}
}

func (b *BreakerSender) onSuccess() {
	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		b.halfOpen--
	}
}
