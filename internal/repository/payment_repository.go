package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetByChargeRefForUpdate(ctx context.Context, ref string) (*model.Payment, error)
	// Сменить статус и, если передана, ссылку на списание.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus, chargeRef string) error
	ListByUser(ctx context.Context, userID uuid.UUID, page calendar.PageRequest) ([]model.Payment, int64, error)
	// Платежи в статусе pending, созданные раньше before.
	ListPendingBefore(ctx context.Context, before time.Time) ([]model.Payment, error)
	SumCompletedBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "payment")
}

func (r *GormPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "payment")
	}
	return &p, nil
}

func (r *GormPaymentRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	if err := forUpdate(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "payment")
	}
	return &p, nil
}

func (r *GormPaymentRepository) GetByChargeRefForUpdate(ctx context.Context, ref string) (*model.Payment, error) {
	var p model.Payment
	if err := forUpdate(r.db.WithContext(ctx)).First(&p, "charge_ref = ?", ref).Error; err != nil {
		return nil, translate(err, "payment")
	}
	return &p, nil
}

func (r *GormPaymentRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status model.PaymentStatus,
	chargeRef string,
) error {
	update := map[string]any{"status": status}
	if chargeRef != "" {
		update["charge_ref"] = chargeRef
	}
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ?", id).
		Updates(update).Error
	return translate(err, "payment")
}

func (r *GormPaymentRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	page calendar.PageRequest,
) ([]model.Payment, int64, error) {
	var (
		payments []model.Payment
		total    int64
	)

	q := r.db.WithContext(ctx).Model(&model.Payment{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *GormPaymentRepository) ListPendingBefore(ctx context.Context, before time.Time) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at <= ?", model.PaymentStatusPending, before.UTC()).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *GormPaymentRepository) SumCompletedBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ?", model.PaymentStatusCompleted).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Row().
		Scan(&total)
	return total, err
}
