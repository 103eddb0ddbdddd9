package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/lifecycle"
	"github.com/Leganyst/consulting-platform/internal/metrics"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/queue"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

const unavailableReason = "provider became unavailable"

// Decision — ответ проверки возможности записи.
type Decision struct {
	Bookable bool        `json:"bookable"`
	Kind     domain.Kind `json:"kind,omitempty"`
	Reason   string      `json:"reason,omitempty"`
}

type CreateBookingInput struct {
	ProviderID uuid.UUID `json:"provider_id" validate:"required"`
	ProjectID  uuid.UUID `json:"project_id" validate:"required"`
	StartsAt   time.Time `json:"starts_at" validate:"required"`
	EndsAt     time.Time `json:"ends_at" validate:"required"`
	Notes      string    `json:"notes" validate:"max=2000"`
}

type BookingService struct {
	Deps
}

func NewBookingService(d Deps) *BookingService {
	return &BookingService{Deps: d.withDefaults()}
}

// checkBookable — ядро проверки: окно доступности и пересечения с активными бронями.
func checkBookable(ctx context.Context, tx *repository.Store, provider *model.Provider, tr calendar.TimeRange) error {
	if !provider.IsAvailable {
		return domain.OutOfAvailability("provider is unavailable")
	}

	loc := provider.Location()
	day := calendar.WeekdayOf(tr.Start.In(loc))

	w, err := tx.Windows.GetByProviderAndDay(ctx, provider.ID, int(day))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.OutOfAvailability("provider has no availability on " + day.String())
	}
	if err != nil {
		return err
	}
	if !w.Window().Contains(tr, loc) {
		return domain.OutOfAvailability("requested time is outside provider availability")
	}

	conflicts, err := tx.Bookings.ListActiveOverlapping(ctx, provider.ID, tr)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return domain.SlotConflict("provider already has a booking at " +
			calendar.FormatRange(conflicts[0].Range(), loc, false, ""))
	}
	return nil
}

// CanBook — чистое чтение: можно ли записаться к консультанту на [start, end).
func (s *BookingService) CanBook(ctx context.Context, providerID uuid.UUID, start, end time.Time) (Decision, error) {
	tr, err := calendar.NewTimeRange(start.UTC(), end.UTC())
	if err != nil {
		return Decision{}, domain.Validation("start must be before end")
	}

	provider, err := s.Store.Providers.GetByID(ctx, providerID)
	if err != nil {
		return Decision{}, err
	}

	err = checkBookable(ctx, s.Store, provider, tr)
	switch kind := domain.KindOf(err); {
	case err == nil:
		metrics.IncrementBookingDecision("bookable")
		return Decision{Bookable: true}, nil
	case kind == domain.KindOutOfAvailability || kind == domain.KindSlotConflict:
		metrics.IncrementBookingDecision(string(kind))
		var de *domain.Error
		errors.As(err, &de)
		return Decision{Kind: kind, Reason: de.Reason}, nil
	default:
		return Decision{}, err
	}
}

// Create проверяет и сохраняет бронь в одной SERIALIZABLE-транзакции
// с блокировкой строки консультанта.
func (s *BookingService) Create(ctx context.Context, p domain.Principal, in CreateBookingInput) (*model.Booking, error) {
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	tr, err := calendar.NewTimeRange(in.StartsAt.UTC(), in.EndsAt.UTC())
	if err != nil {
		return nil, domain.Validation("starts_at must be before ends_at")
	}
	if tr.Start.Before(s.Clock.Now()) {
		return nil, domain.Validation("booking cannot start in the past")
	}

	var booking *model.Booking
	err = s.Store.Serializable(ctx, s.TxRetries, func(tx *repository.Store) error {
		project, err := tx.Projects.GetByID(ctx, in.ProjectID)
		if err != nil {
			return err
		}
		if err := lifecycle.AuthorizeProjectOwner(p, project.ClientID); err != nil {
			return err
		}
		if project.Status.Terminal() {
			return domain.Validation("project is %s", project.Status)
		}

		provider, err := tx.Providers.GetByIDForUpdate(ctx, in.ProviderID)
		if err != nil {
			return err
		}
		if err := checkBookable(ctx, tx, provider, tr); err != nil {
			return err
		}

		booking = &model.Booking{
			ProviderID: provider.ID,
			ProjectID:  project.ID,
			ClientID:   project.ClientID,
			StartsAt:   tr.Start,
			EndsAt:     tr.End,
			Status:     model.BookingStatusScheduled,
			Notes:      in.Notes,
		}
		if err := tx.Bookings.Create(ctx, booking); err != nil {
			return err
		}
		return s.Tasks.Enqueue(ctx, tx, queue.KindBookingCreated, queue.BookingPayload{BookingID: booking.ID})
	})
	if err != nil {
		if k := domain.KindOf(err); k == domain.KindOutOfAvailability || k == domain.KindSlotConflict {
			metrics.IncrementBookingDecision(string(k))
		}
		return nil, err
	}

	metrics.IncrementBookingDecision("bookable")
	s.Logger.Info("booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("provider_id", booking.ProviderID.String()),
		zap.Time("starts_at", booking.StartsAt),
		zap.Duration("duration", booking.Range().Duration()),
	)
	return booking, nil
}

// transition загружает бронь под блокировкой, проверяет права и сохраняет результат перехода.
func (s *BookingService) transition(
	ctx context.Context,
	id uuid.UUID,
	authorize func(lifecycle.BookingParties) error,
	apply func(model.Booking) (model.Booking, error),
	after func(tx *repository.Store, b model.Booking) error,
) (*model.Booking, error) {
	var out model.Booking
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		b, err := tx.Bookings.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		provider, err := tx.Providers.GetByID(ctx, b.ProviderID)
		if err != nil {
			return err
		}
		if err := authorize(lifecycle.BookingParties{ClientUserID: b.ClientID, ProviderUserID: provider.UserID}); err != nil {
			return err
		}

		out, err = apply(*b)
		if err != nil {
			return err
		}
		if err := tx.Bookings.UpdateStatus(ctx, &out); err != nil {
			return err
		}
		if after != nil {
			return after(tx, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Start: scheduled -> in_progress, только консультант брони или админ.
func (s *BookingService) Start(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Booking, error) {
	return s.transition(ctx, id,
		func(parties lifecycle.BookingParties) error { return lifecycle.AuthorizeBookingProgress(p, parties) },
		lifecycle.StartBooking,
		nil,
	)
}

// Complete: in_progress -> completed, только консультант брони или админ.
func (s *BookingService) Complete(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Booking, error) {
	return s.transition(ctx, id,
		func(parties lifecycle.BookingParties) error { return lifecycle.AuthorizeBookingProgress(p, parties) },
		lifecycle.CompleteBooking,
		nil,
	)
}

// Cancel: клиент, консультант или админ; уведомление уходит фоновой задачей.
func (s *BookingService) Cancel(ctx context.Context, p domain.Principal, id uuid.UUID, reason string) (*model.Booking, error) {
	now := s.Clock.Now()
	b, err := s.transition(ctx, id,
		func(parties lifecycle.BookingParties) error { return lifecycle.AuthorizeBookingCancel(p, parties) },
		func(b model.Booking) (model.Booking, error) { return lifecycle.CancelBooking(b, now, reason) },
		func(tx *repository.Store, b model.Booking) error {
			return s.Tasks.Enqueue(ctx, tx, queue.KindBookingCancelled, queue.BookingPayload{BookingID: b.ID, Reason: b.CancelReason})
		},
	)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("booking cancelled",
		zap.String("booking_id", b.ID.String()),
		zap.String("by", p.UserID.String()),
	)
	return b, nil
}

// SetProviderAvailability меняет флаг консультанта. При выключении в той же
// транзакции отменяются все его будущие scheduled-брони; результат — отменённые брони.
func (s *BookingService) SetProviderAvailability(
	ctx context.Context,
	p domain.Principal,
	providerID uuid.UUID,
	available bool,
) ([]model.Booking, error) {
	now := s.Clock.Now()
	var affected []model.Booking

	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		provider, err := tx.Providers.GetByIDForUpdate(ctx, providerID)
		if err != nil {
			return err
		}
		if err := lifecycle.AuthorizeProviderManage(p, provider.UserID); err != nil {
			return err
		}
		if err := tx.Providers.SetAvailability(ctx, provider.ID, available); err != nil {
			return err
		}
		if available {
			return nil
		}

		bookings, err := tx.Bookings.ListFutureScheduledForUpdate(ctx, provider.ID, now)
		if err != nil {
			return err
		}
		for _, b := range bookings {
			cancelled, err := lifecycle.CancelBooking(b, now, unavailableReason)
			if err != nil {
				return err
			}
			if err := tx.Bookings.UpdateStatus(ctx, &cancelled); err != nil {
				return err
			}
			payload := queue.BookingPayload{BookingID: cancelled.ID, Reason: unavailableReason}
			if err := s.Tasks.Enqueue(ctx, tx, queue.KindBookingCancelled, payload); err != nil {
				return err
			}
			affected = append(affected, cancelled)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("provider availability changed",
		zap.String("provider_id", providerID.String()),
		zap.Bool("available", available),
		zap.Int("cancelled_bookings", len(affected)),
	)
	return affected, nil
}

// Get отдаёт бронь её участникам и админу.
func (s *BookingService) Get(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Booking, error) {
	b, err := s.Store.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	provider, err := s.Store.Providers.GetByID(ctx, b.ProviderID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.AuthorizeBookingCancel(p, lifecycle.BookingParties{ClientUserID: b.ClientID, ProviderUserID: provider.UserID}); err != nil {
		return nil, domain.Denied("booking belongs to other users")
	}
	return b, nil
}

// scopeFilter сужает фильтр до броней, видимых принципалу.
func (s *BookingService) scopeFilter(ctx context.Context, p domain.Principal, f repository.BookingFilter) (repository.BookingFilter, error) {
	switch p.Role {
	case domain.RoleAdmin:
		return f, nil
	case domain.RoleProvider:
		provider, err := s.Store.Providers.GetByUserID(ctx, p.UserID)
		if err != nil {
			return f, err
		}
		f.ProviderID = &provider.ID
		return f, nil
	default:
		uid := p.UserID
		f.ClientID = &uid
		return f, nil
	}
}

func (s *BookingService) List(
	ctx context.Context,
	p domain.Principal,
	filter repository.BookingFilter,
	page calendar.PageRequest,
) (calendar.Page[model.Booking], error) {
	filter, err := s.scopeFilter(ctx, p, filter)
	if err != nil {
		return calendar.Page[model.Booking]{}, err
	}
	items, total, err := s.Store.Bookings.List(ctx, filter, page)
	if err != nil {
		return calendar.Page[model.Booking]{}, err
	}
	return calendar.NewPage(items, page, total), nil
}

// Upcoming — активные брони принципала, начиная с текущего момента.
func (s *BookingService) Upcoming(ctx context.Context, p domain.Principal, page calendar.PageRequest) (calendar.Page[model.Booking], error) {
	now := s.Clock.Now()
	return s.List(ctx, p, repository.BookingFilter{
		Statuses: model.ActiveBookingStatuses,
		From:     &now,
	}, page)
}

// FreeSlots нарезает свободное время окна консультанта в дату date на слоты длительностью slot.
func (s *BookingService) FreeSlots(
	ctx context.Context,
	providerID uuid.UUID,
	date time.Time,
	slot time.Duration,
) ([]calendar.TimeRange, error) {
	if slot <= 0 {
		return nil, domain.Validation("slot duration must be positive")
	}

	provider, err := s.Store.Providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if !provider.IsAvailable {
		return []calendar.TimeRange{}, nil
	}

	loc := provider.Location()
	day := calendar.WeekdayOf(date.In(loc))
	w, err := s.Store.Windows.GetByProviderAndDay(ctx, provider.ID, int(day))
	if errors.Is(err, domain.ErrNotFound) {
		return []calendar.TimeRange{}, nil
	}
	if err != nil {
		return nil, err
	}

	span := w.Window().On(date, loc)
	bookings, err := s.Store.Bookings.ListActiveOverlapping(ctx, provider.ID, span)
	if err != nil {
		return nil, err
	}
	busy := make([]calendar.TimeRange, 0, len(bookings))
	for _, b := range bookings {
		busy = append(busy, b.Range())
	}

	now := s.Clock.Now()
	out := []calendar.TimeRange{}
	for _, free := range calendar.Subtract(span, busy) {
		slots, err := calendar.SplitToTimeSlots(free, slot, 0)
		if err != nil {
			return nil, domain.Validation("%v", err)
		}
		for _, sl := range slots {
			if !sl.Start.Before(now) {
				out = append(out, sl)
			}
		}
	}
	return out, nil
}
