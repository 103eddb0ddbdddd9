package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/model"
)

// BookingFilter ограничивает выборку броней участником и статусами.
type BookingFilter struct {
	ProviderID *uuid.UUID
	ClientID   *uuid.UUID
	Statuses   []model.BookingStatus
	From       *time.Time
	To         *time.Time
}

// BookingCounts — агрегаты по броням консультанта.
type BookingCounts struct {
	Total     int64
	Completed int64
}

type BookingRepository interface {
	// Создать новое бронирование.
	Create(ctx context.Context, booking *model.Booking) error
	// Получить бронирование по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// Сохранить результат перехода: статус и поля отмены.
	UpdateStatus(ctx context.Context, booking *model.Booking) error
	// Активные брони консультанта, пересекающие [from, to).
	ListActiveOverlapping(ctx context.Context, providerID uuid.UUID, tr calendar.TimeRange) ([]model.Booking, error)
	// Будущие scheduled-брони консультанта с блокировкой строк.
	ListFutureScheduledForUpdate(ctx context.Context, providerID uuid.UUID, now time.Time) ([]model.Booking, error)
	// Список бронирований по фильтру с пагинацией.
	List(ctx context.Context, filter BookingFilter, page calendar.PageRequest) ([]model.Booking, int64, error)
	// Scheduled-брони, начинающиеся в (from, to], по которым ещё не отправлено напоминание.
	ListDueReminders(ctx context.Context, from, to time.Time) ([]model.Booking, error)
	// Отметить отправку напоминания; false — кто-то успел раньше.
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	CountForProvider(ctx context.Context, providerID uuid.UUID) (BookingCounts, error)
	// Есть ли у клиента завершённая сессия с консультантом.
	HasCompleted(ctx context.Context, providerID, clientID uuid.UUID) (bool, error)
	// Есть ли у консультанта брони по проекту.
	ExistsForProjectAndProvider(ctx context.Context, projectID, providerID uuid.UUID) (bool, error)
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return translate(r.db.WithContext(ctx).Create(booking).Error, "booking")
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err, "booking")
	}
	return &b, nil
}

func (r *GormBookingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := forUpdate(r.db.WithContext(ctx)).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err, "booking")
	}
	return &b, nil
}

func (r *GormBookingRepository) UpdateStatus(ctx context.Context, booking *model.Booking) error {
	update := map[string]any{
		"status": booking.Status,
	}
	if booking.CancelledAt != nil {
		update["cancelled_at"] = *booking.CancelledAt
		update["cancel_reason"] = booking.CancelReason
	}
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ?", booking.ID).
		Updates(update).
		Error
	return translate(err, "booking")
}

func (r *GormBookingRepository) ListActiveOverlapping(
	ctx context.Context,
	providerID uuid.UUID,
	tr calendar.TimeRange,
) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Where("status IN ?", model.ActiveBookingStatuses).
		Where("starts_at < ? AND ends_at > ?", tr.End.UTC(), tr.Start.UTC()).
		Order("starts_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) ListFutureScheduledForUpdate(
	ctx context.Context,
	providerID uuid.UUID,
	now time.Time,
) ([]model.Booking, error) {
	var bookings []model.Booking
	err := forUpdate(r.db.WithContext(ctx)).
		Where("provider_id = ?", providerID).
		Where("status = ?", model.BookingStatusScheduled).
		Where("starts_at > ?", now.UTC()).
		Order("starts_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) List(
	ctx context.Context,
	filter BookingFilter,
	page calendar.PageRequest,
) ([]model.Booking, int64, error) {
	var (
		bookings []model.Booking
		total    int64
	)

	q := r.db.WithContext(ctx).Model(&model.Booking{})
	if filter.ProviderID != nil {
		q = q.Where("provider_id = ?", *filter.ProviderID)
	}
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.From != nil {
		q = q.Where("starts_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("starts_at < ?", filter.To.UTC())
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("starts_at ASC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *GormBookingRepository) ListDueReminders(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("status = ?", model.BookingStatusScheduled).
		Where("reminder_sent_at IS NULL").
		Where("starts_at > ? AND starts_at <= ?", from.UTC(), to.UTC()).
		Order("starts_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at.UTC())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormBookingRepository) CountForProvider(ctx context.Context, providerID uuid.UUID) (BookingCounts, error) {
	var counts BookingCounts
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Select(
			"COUNT(*) AS total, COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed",
			model.BookingStatusCompleted,
		).
		Where("provider_id = ?", providerID).
		Scan(&counts).Error
	return counts, err
}

func (r *GormBookingRepository) HasCompleted(ctx context.Context, providerID, clientID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("provider_id = ? AND client_id = ? AND status = ?", providerID, clientID, model.BookingStatusCompleted).
		Count(&n).Error
	return n > 0, err
}

func (r *GormBookingRepository) ExistsForProjectAndProvider(ctx context.Context, projectID, providerID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("project_id = ? AND provider_id = ?", projectID, providerID).
		Count(&n).Error
	return n > 0, err
}
