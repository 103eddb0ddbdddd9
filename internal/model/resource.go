package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResourceFileType string

const (
	ResourceFileTypePDF      ResourceFileType = "pdf"
	ResourceFileTypeDocument ResourceFileType = "doc"
	ResourceFileTypeVideo    ResourceFileType = "video"
	ResourceFileTypeAudio    ResourceFileType = "audio"
	ResourceFileTypeImage    ResourceFileType = "image"
	ResourceFileTypeOther    ResourceFileType = "other"
)

// resources — материалы библиотеки.
type Resource struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Title       string           `gorm:"type:varchar(200);not null;index" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	FileType    ResourceFileType `gorm:"type:varchar(20);not null;index" json:"file_type"`
	FileURL     string           `gorm:"type:varchar(500);not null" json:"file_url"`

	// JSON-массив тегов в нижнем регистре.
	Tags datatypes.JSON `json:"tags"`

	IsPremium   bool       `gorm:"not null;default:false;index" json:"is_premium"`
	CreatedByID *uuid.UUID `gorm:"type:uuid" json:"created_by_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Categories []ResourceCategory `gorm:"many2many:resource_category_links" json:"categories,omitempty"`
}

func (r *Resource) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

func (r Resource) TagList() []string {
	var out []string
	if len(r.Tags) == 0 {
		return out
	}
	_ = json.Unmarshal(r.Tags, &out)
	return out
}

func (r Resource) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range r.TagList() {
		if t == tag {
			return true
		}
	}
	return false
}

// resource_categories — дерево категорий библиотеки.
type ResourceCategory struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Name        string     `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`

	Children []ResourceCategory `gorm:"foreignKey:ParentID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"children,omitempty"`
}

func (c *ResourceCategory) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// resource_accesses — факт просмотра материала пользователем.
type ResourceAccess struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_access_user_resource" json:"user_id"`
	ResourceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_access_user_resource" json:"resource_id"`

	AccessedAt time.Time `gorm:"not null" json:"accessed_at"`

	Resource *Resource `gorm:"foreignKey:ResourceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (a *ResourceAccess) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// resource_ratings
type ResourceRating struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_resource_rating_user" json:"user_id"`
	ResourceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_resource_rating_user" json:"resource_id"`

	Score   int    `gorm:"not null;check:score BETWEEN 1 AND 5" json:"score"`
	Comment string `gorm:"type:text" json:"comment,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Resource *Resource `gorm:"foreignKey:ResourceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (r *ResourceRating) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
