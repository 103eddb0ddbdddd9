package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusPending    ProjectStatus = "pending"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusCancelled
}

// StepCompleted — статус шага, который засчитывается при оценке завершения.
const StepCompleted = "completed"

// projects
type Project struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ClientID uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	// Тариф не меняется после покупки.
	ServiceTierID uuid.UUID `gorm:"type:uuid;not null;index;<-:create" json:"service_tier_id"`

	Name   string        `gorm:"type:varchar(200);not null" json:"name"`
	Status ProjectStatus `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Прогресс по шагам: step -> step status.
	Progress datatypes.JSONMap `json:"progress"`

	ReminderSentAt *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Client      *User        `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ServiceTier *ServiceTier `gorm:"foreignKey:ServiceTierID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"service_tier,omitempty"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Progress == nil {
		p.Progress = datatypes.JSONMap{}
	}
	return nil
}

// Steps возвращает прогресс как step -> status; нестроковые значения игнорируются.
func (p Project) Steps() map[string]string {
	out := make(map[string]string, len(p.Progress))
	for step, v := range p.Progress {
		if s, ok := v.(string); ok {
			out[step] = s
		}
	}
	return out
}
