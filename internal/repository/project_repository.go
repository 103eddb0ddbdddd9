package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/model"
)

type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Project, error)
	// Сохранить статус, отметки времени и прогресс; тариф не трогается.
	Save(ctx context.Context, p *model.Project) error
	ListByClient(ctx context.Context, clientID uuid.UUID, page calendar.PageRequest) ([]model.Project, int64, error)
	// Есть ли у клиента проект в работе.
	HasInProgress(ctx context.Context, clientID uuid.UUID) (bool, error)
	// Неоплаченная покупка того же тарифа.
	HasPendingForTier(ctx context.Context, clientID, tierID uuid.UUID) (bool, error)
	ListPendingByClient(ctx context.Context, clientID uuid.UUID) ([]model.Project, error)
	// Проекты в работе, начатые до before и без напоминания после remindedBefore.
	ListStale(ctx context.Context, startedBefore, remindedBefore time.Time) ([]model.Project, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error
	CountCompletedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type GormProjectRepository struct {
	db *gorm.DB
}

func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) Create(ctx context.Context, p *model.Project) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "project")
}

func (r *GormProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).Preload("ServiceTier").First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "project")
	}
	return &p, nil
}

func (r *GormProjectRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	if err := forUpdate(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "project")
	}
	return &p, nil
}

func (r *GormProjectRepository) Save(ctx context.Context, p *model.Project) error {
	err := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"status":       p.Status,
			"started_at":   p.StartedAt,
			"completed_at": p.CompletedAt,
			"progress":     p.Progress,
		}).Error
	return translate(err, "project")
}

func (r *GormProjectRepository) ListByClient(
	ctx context.Context,
	clientID uuid.UUID,
	page calendar.PageRequest,
) ([]model.Project, int64, error) {
	var (
		projects []model.Project
		total    int64
	)

	q := r.db.WithContext(ctx).Model(&model.Project{}).Where("client_id = ?", clientID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("ServiceTier").
		Order("created_at DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&projects).Error
	if err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *GormProjectRepository) HasInProgress(ctx context.Context, clientID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("client_id = ? AND status = ?", clientID, model.ProjectStatusInProgress).
		Count(&n).Error
	return n > 0, err
}

func (r *GormProjectRepository) HasPendingForTier(ctx context.Context, clientID, tierID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("client_id = ? AND service_tier_id = ? AND status = ?", clientID, tierID, model.ProjectStatusPending).
		Count(&n).Error
	return n > 0, err
}

func (r *GormProjectRepository) ListPendingByClient(ctx context.Context, clientID uuid.UUID) ([]model.Project, error) {
	var projects []model.Project
	err := forUpdate(r.db.WithContext(ctx)).
		Where("client_id = ? AND status = ?", clientID, model.ProjectStatusPending).
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *GormProjectRepository) ListStale(ctx context.Context, startedBefore, remindedBefore time.Time) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Where("status = ?", model.ProjectStatusInProgress).
		Where("started_at <= ?", startedBefore.UTC()).
		Where("reminder_sent_at IS NULL OR reminder_sent_at <= ?", remindedBefore.UTC()).
		Order("started_at ASC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *GormProjectRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("id = ?", id).
		Update("reminder_sent_at", at.UTC()).Error
}

func (r *GormProjectRepository) CountCompletedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("status = ?", model.ProjectStatusCompleted).
		Where("completed_at >= ? AND completed_at < ?", from.UTC(), to.UTC()).
		Count(&n).Error
	return n, err
}
