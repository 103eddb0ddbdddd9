// Package app собирает зависимости процесса: БД, Redis, сервисы, очередь задач.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/cache"
	"github.com/Leganyst/consulting-platform/internal/config"
	"github.com/Leganyst/consulting-platform/internal/db"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/grpcserver"
	"github.com/Leganyst/consulting-platform/internal/http/handlers"
	"github.com/Leganyst/consulting-platform/internal/http/router"
	"github.com/Leganyst/consulting-platform/internal/identity"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/notify"
	"github.com/Leganyst/consulting-platform/internal/payment"
	"github.com/Leganyst/consulting-platform/internal/queue"
	"github.com/Leganyst/consulting-platform/internal/repository"
	"github.com/Leganyst/consulting-platform/internal/service"
	"github.com/Leganyst/consulting-platform/internal/worker"
)

const statsCachePrefix = "resource-stats"

type Services struct {
	Identity     *service.IdentityService
	Providers    *service.ProviderService
	Availability *service.AvailabilityService
	Bookings     *service.BookingService
	Projects     *service.ProjectService
	Payments     *service.PaymentService
	Ratings      *service.RatingService
	Resources    *service.ResourceService
	Jobs         *service.JobsService
}

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Redis    *redis.Client // nil, если Redis не настроен
	Store    *repository.Store
	Clock    domain.Clock
	Services Services
	Tokens   *identity.TokenManager
	Tasks    *queue.Router
}

// New открывает БД и Redis и собирает сервисы. Close освобождает ресурсы.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	gormDB, err := db.NewGormDB(&cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		DB:     gormDB,
		Store:  repository.NewStore(gormDB),
		Clock:  domain.SystemClock{},
		Tokens: identity.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL),
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			// без Redis работаем: дедупликация и кеш просто выключаются
			logger.Warn("redis unavailable, dedup and stats cache disabled", zap.Error(err))
			_ = rdb.Close()
		} else {
			a.Redis = rdb
		}
	}

	a.buildServices()
	a.buildTasks()
	return a, nil
}

func (a *App) buildServices() {
	deps := service.Deps{
		Store:     a.Store,
		Tasks:     queue.NewOutbox(),
		Clock:     a.Clock,
		Logger:    a.Logger,
		TxRetries: a.Config.DB.TxRetries,
	}

	var stats cache.JSONCache = cache.Nop{}
	if a.Redis != nil {
		stats = cache.NewRedisCache(a.Redis, statsCachePrefix, a.Config.Redis.StatsTTL)
	}

	a.Services = Services{
		Identity:     service.NewIdentityService(deps),
		Providers:    service.NewProviderService(deps),
		Availability: service.NewAvailabilityService(deps),
		Bookings:     service.NewBookingService(deps),
		Projects:     service.NewProjectService(deps),
		Payments:     service.NewPaymentService(deps, payment.ManualGateway{}),
		Ratings:      service.NewRatingService(deps),
		Resources:    service.NewResourceService(deps, stats),
		Jobs:         service.NewJobsService(deps, worker.Policy(a.Config.Worker)),
	}
}

func (a *App) buildTasks() {
	var deduper queue.Deduper
	if a.Redis != nil {
		deduper = queue.NewRedisDeduper(a.Redis, a.Config.Redis.DedupTTL, a.Logger)
	}
	a.Tasks = queue.NewRouter(deduper, a.Logger)

	sender := notify.NewBreakerSender(notify.NewLogSender(a.Logger), notify.DefaultBreakerConfig())
	worker.NewHandlers(a.Store, a.Services.Projects, a.Services.Payments, sender, a.Logger).Register(a.Tasks)
}

// Migrate применяет схему.
func (a *App) Migrate() error {
	if err := model.AutoMigrate(a.DB); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Logger.Warn("close db", zap.Error(err))
		}
	}
}

// publisher: RabbitMQ, если задан URL, иначе задачи исполняются в процессе.
func (a *App) publisher() (queue.Publisher, func(), error) {
	if a.Config.MQ.URL == "" {
		a.Logger.Info("RABBITMQ_URL is empty, tasks are handled in-process")
		return queue.NewLocalPublisher(a.Tasks), func() {}, nil
	}
	p, err := queue.NewAMQPPublisher(a.Config.MQ)
	if err != nil {
		return nil, nil, fmt.Errorf("init amqp publisher: %w", err)
	}
	return p, p.Close, nil
}

func (a *App) httpHandler() http.Handler {
	s := a.Services
	return router.SetupRouter(a.Config, router.Handlers{
		Health:       handlers.NewHealthHandler(a.DB, a.Redis),
		Users:        handlers.NewUserHandler(s.Identity),
		Providers:    handlers.NewProviderHandler(s.Providers, s.Bookings, s.Ratings),
		Availability: handlers.NewAvailabilityHandler(s.Availability),
		Bookings:     handlers.NewBookingHandler(s.Bookings),
		Projects:     handlers.NewProjectHandler(s.Projects),
		Payments:     handlers.NewPaymentHandler(s.Payments),
		Resources:    handlers.NewResourceHandler(s.Resources),
	}, a.Tokens, a.Logger)
}

// Serve поднимает HTTP API, gRPC health и диспетчер outbox до отмены ctx.
func (a *App) Serve(ctx context.Context) error {
	pub, closePub, err := a.publisher()
	if err != nil {
		return err
	}
	defer closePub()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatcher := queue.NewDispatcher(a.Store.Events, pub, a.Clock, a.Logger).
		WithInterval(a.Config.Worker.PollInterval).
		WithBatchSize(a.Config.Worker.BatchSize).
		WithMaxAttempts(a.Config.Worker.MaxAttempts)

	server := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           a.httpHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcSrv := grpcserver.New(a.DB, a.Logger)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := grpcSrv.Serve(ctx, a.Config.GRPC.Addr); err != nil {
			errCh <- err
			cancel()
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	a.Logger.Info("http server listening", zap.String("addr", a.Config.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("http serve: %w", err)
	}
	cancel()
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// RunWorker исполняет периодические задачи и, при настроенном RabbitMQ,
// потребляет очередь задач.
func (a *App) RunWorker(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	if a.Config.MQ.URL != "" {
		consumer, err := queue.NewConsumer(a.Config.MQ, a.Tasks, a.Logger)
		if err != nil {
			return fmt.Errorf("init consumer: %w", err)
		}
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil {
				errCh <- err
				cancel()
			}
		}()
	} else {
		a.Logger.Info("RABBITMQ_URL is empty, worker runs periodic jobs only")
	}

	scheduler := worker.NewScheduler(a.Logger, worker.Jobs(a.Services.Jobs, a.Config.Worker, a.Clock)...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// IssueToken выпускает токен для существующего пользователя (dev-выдача из CLI).
func (a *App) IssueToken(ctx context.Context, email string) (string, time.Time, domain.Principal, error) {
	p, err := a.Services.Identity.PrincipalByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, domain.Principal{}, err
	}
	token, exp, err := a.Tokens.Issue(p)
	if err != nil {
		return "", time.Time{}, domain.Principal{}, err
	}
	return token, exp, p, nil
}
