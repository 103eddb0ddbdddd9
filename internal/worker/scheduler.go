package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/config"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/metrics"
	"github.com/Leganyst/consulting-platform/internal/service"
)

// Job — периодическая задача. Run возвращает число обработанных объектов.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// Scheduler крутит каждую задачу в своём тикере; первый прогон сразу при старте.
type Scheduler struct {
	jobs   []Job
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, logger: logger}
}

// Run блокируется до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.logger.Warn("job disabled", zap.String("job", job.Name))
			continue
		}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	s.logger.Info("job scheduled", zap.String("job", job.Name), zap.Duration("interval", job.Interval))

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.RunOnce(ctx, job)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, job)
		}
	}
}

// RunOnce выполняет задачу один раз; ошибка логируется и не останавливает цикл.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) {
	n, err := job.Run(ctx)
	if err != nil {
		metrics.IncrementTaskProcessed("job."+job.Name, "failed")
		s.logger.Error("job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	metrics.IncrementTaskProcessed("job."+job.Name, "success")
	if n > 0 {
		s.logger.Info("job done", zap.String("job", job.Name), zap.Int("processed", n))
	}
}

// MonthlyGate пропускает fn только первого числа и не чаще раза в месяц.
// Состояние в памяти: после рестарта отчёт за месяц может уйти повторно.
func MonthlyGate(clock domain.Clock, fn func(ctx context.Context) (int, error)) func(ctx context.Context) (int, error) {
	var (
		mu   sync.Mutex
		last string
	)
	return func(ctx context.Context) (int, error) {
		now := clock.Now().UTC()
		if now.Day() != 1 {
			return 0, nil
		}
		month := now.Format("2006-01")

		mu.Lock()
		defer mu.Unlock()
		if last == month {
			return 0, nil
		}
		n, err := fn(ctx)
		if err != nil {
			return n, err
		}
		last = month
		return n, nil
	}
}

// Jobs собирает периодические задачи воркера.
func Jobs(jobs *service.JobsService, cfg config.WorkerConfig, clock domain.Clock) []Job {
	return []Job{
		{Name: "booking_reminders", Interval: cfg.ReminderInterval, Run: jobs.SendBookingReminders},
		{Name: "stale_projects", Interval: cfg.ReminderInterval, Run: jobs.RemindStaleProjects},
		{Name: "pending_payments", Interval: cfg.CleanupInterval, Run: jobs.ExpirePendingPayments},
		{Name: "monthly_report", Interval: cfg.ReportInterval, Run: MonthlyGate(clock, jobs.MonthlyReport)},
	}
}

// Policy переносит пороги из конфига в сервис задач.
func Policy(cfg config.WorkerConfig) service.JobsPolicy {
	return service.JobsPolicy{
		ReminderLead:      cfg.BookingReminderAhead,
		StaleProjectAfter: cfg.StaleProjectAfter,
		PendingPaymentTTL: cfg.PendingPaymentTTL,
	}
}
