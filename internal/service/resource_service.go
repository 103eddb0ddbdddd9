package service

import (
	"context"
	"encoding/json"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/cache"
	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/lifecycle"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

// Расширения, которые принимает библиотека.
var allowedExtensions = map[string]bool{
	"pdf": true, "doc": true, "docx": true,
	"mp4": true, "mp3": true,
	"jpg": true, "png": true, "gif": true,
}

const recommendationPool = 100

type ResourceInput struct {
	Title       string      `json:"title" validate:"required,max=200"`
	Description string      `json:"description" validate:"max=5000"`
	FileURL     string      `json:"file_url" validate:"required,max=500"`
	IsPremium   bool        `json:"is_premium"`
	Tags        []string    `json:"tags" validate:"max=20,dive,max=50"`
	CategoryIDs []uuid.UUID `json:"category_ids"`
	// Первые байты файла, если он загружен: сверяются с расширением.
	Head []byte `json:"-"`
}

type CategoryInput struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Description string     `json:"description" validate:"max=1000"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

type ResourceService struct {
	Deps
	stats cache.JSONCache
}

func NewResourceService(d Deps, stats cache.JSONCache) *ResourceService {
	if stats == nil {
		stats = cache.Nop{}
	}
	return &ResourceService{Deps: d.withDefaults(), stats: stats}
}

// DetectFileType определяет тип материала по расширению ссылки и, если передан,
// по заголовку содержимого.
func DetectFileType(fileURL string, head []byte) (model.ResourceFileType, error) {
	if i := strings.IndexAny(fileURL, "?#"); i >= 0 {
		fileURL = fileURL[:i]
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(fileURL)), ".")
	if !allowedExtensions[ext] {
		return "", domain.Validation("unsupported file extension %q", ext)
	}

	kind := filetype.GetType(ext)
	if kind == filetype.Unknown {
		return "", domain.Validation("unsupported file extension %q", ext)
	}
	if len(head) > 0 {
		sniffed, err := filetype.Match(head)
		if err != nil || sniffed == filetype.Unknown || sniffed.MIME.Type != kind.MIME.Type {
			return "", domain.Validation("file content does not match extension %q", ext)
		}
	}
	return fileTypeOf(kind), nil
}

func fileTypeOf(kind types.Type) model.ResourceFileType {
	switch {
	case kind.MIME.Subtype == "pdf":
		return model.ResourceFileTypePDF
	case kind.Extension == "doc" || kind.Extension == "docx":
		return model.ResourceFileTypeDocument
	case kind.MIME.Type == "video":
		return model.ResourceFileTypeVideo
	case kind.MIME.Type == "audio":
		return model.ResourceFileTypeAudio
	case kind.MIME.Type == "image":
		return model.ResourceFileTypeImage
	}
	return model.ResourceFileTypeOther
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// canSeePremium: админ или клиент с проектом в работе.
func (s *ResourceService) canSeePremium(ctx context.Context, p domain.Principal) (bool, error) {
	if p.IsAdmin() {
		return true, nil
	}
	return s.Store.Projects.HasInProgress(ctx, p.UserID)
}

func (s *ResourceService) Create(ctx context.Context, p domain.Principal, in ResourceInput) (*model.Resource, error) {
	if err := lifecycle.AuthorizeAdmin(p); err != nil {
		return nil, err
	}
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	fileType, err := DetectFileType(in.FileURL, in.Head)
	if err != nil {
		return nil, err
	}
	tags, err := json.Marshal(normalizeTags(in.Tags))
	if err != nil {
		return nil, err
	}

	creator := p.UserID
	res := &model.Resource{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		FileType:    fileType,
		FileURL:     in.FileURL,
		Tags:        tags,
		IsPremium:   in.IsPremium,
		CreatedByID: &creator,
	}

	err = s.Store.Transaction(ctx, func(tx *repository.Store) error {
		categories, err := tx.Resources.CategoriesByIDs(ctx, in.CategoryIDs)
		if err != nil {
			return err
		}
		if len(categories) != len(in.CategoryIDs) {
			return domain.Validation("unknown resource category")
		}
		res.Categories = categories
		return tx.Resources.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("resource created",
		zap.String("resource_id", res.ID.String()),
		zap.String("file_type", string(res.FileType)),
	)
	return res, nil
}

// List отдаёт библиотеку; премиальные материалы видны только при доступе.
func (s *ResourceService) List(
	ctx context.Context,
	p domain.Principal,
	filter repository.ResourceFilter,
	page calendar.PageRequest,
) (calendar.Page[model.Resource], error) {
	premium, err := s.canSeePremium(ctx, p)
	if err != nil {
		return calendar.Page[model.Resource]{}, err
	}
	filter.IncludePremium = premium

	items, total, err := s.Store.Resources.List(ctx, filter, page)
	if err != nil {
		return calendar.Page[model.Resource]{}, err
	}
	return calendar.NewPage(items, page, total), nil
}

// Search — поиск подстроки по названию и описанию.
func (s *ResourceService) Search(ctx context.Context, p domain.Principal, query string, page calendar.PageRequest) (calendar.Page[model.Resource], error) {
	if strings.TrimSpace(query) == "" {
		return calendar.Page[model.Resource]{}, domain.Validation("search query is required")
	}
	return s.List(ctx, p, repository.ResourceFilter{Query: query}, page)
}

func (s *ResourceService) accessible(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Resource, error) {
	res, err := s.Store.Resources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.IsPremium {
		ok, err := s.canSeePremium(ctx, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.Denied("premium resource requires an active project")
		}
	}
	return res, nil
}

// Get отдаёт материал и запоминает просмотр.
func (s *ResourceService) Get(ctx context.Context, p domain.Principal, id uuid.UUID) (*model.Resource, error) {
	res, err := s.accessible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Resources.RecordAccess(ctx, p.UserID, res.ID, s.Clock.Now()); err != nil {
		return nil, err
	}
	s.stats.Delete(ctx, res.ID.String())
	return res, nil
}

func (s *ResourceService) Rate(ctx context.Context, p domain.Principal, id uuid.UUID, in RateInput) (*model.ResourceRating, error) {
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	res, err := s.accessible(ctx, p, id)
	if err != nil {
		return nil, err
	}

	r := &model.ResourceRating{UserID: p.UserID, ResourceID: res.ID, Score: in.Score, Comment: in.Comment}
	if err := s.Store.Resources.UpsertRating(ctx, r); err != nil {
		return nil, err
	}
	s.stats.Delete(ctx, res.ID.String())
	return r, nil
}

// Stats — число просмотров и средняя оценка, с кешем.
func (s *ResourceService) Stats(ctx context.Context, id uuid.UUID) (repository.ResourceStats, error) {
	var stats repository.ResourceStats
	if s.stats.Get(ctx, id.String(), &stats) {
		return stats, nil
	}
	if _, err := s.Store.Resources.GetByID(ctx, id); err != nil {
		return stats, err
	}
	stats, err := s.Store.Resources.Stats(ctx, id)
	if err != nil {
		return stats, err
	}
	s.stats.Set(ctx, id.String(), stats)
	return stats, nil
}

func (s *ResourceService) Categories(ctx context.Context) ([]model.ResourceCategory, error) {
	return s.Store.Resources.ListCategories(ctx)
}

func (s *ResourceService) CreateCategory(ctx context.Context, p domain.Principal, in CategoryInput) (*model.ResourceCategory, error) {
	if err := lifecycle.AuthorizeAdmin(p); err != nil {
		return nil, err
	}
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	c := &model.ResourceCategory{Name: strings.TrimSpace(in.Name), Description: in.Description, ParentID: in.ParentID}
	if err := s.Store.Resources.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Recommended подбирает непросмотренные материалы по пересечению тегов
// с уже просмотренными, от большего пересечения к меньшему.
func (s *ResourceService) Recommended(ctx context.Context, p domain.Principal, limit int) ([]model.Resource, error) {
	if limit <= 0 {
		limit = 5
	}

	accessedIDs, err := s.Store.Resources.AccessedIDs(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	accessed, err := s.Store.Resources.ListByIDs(ctx, accessedIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(accessed))
	interests := map[string]bool{}
	for _, r := range accessed {
		seen[r.ID] = true
		for _, t := range r.TagList() {
			interests[t] = true
		}
	}
	if len(interests) == 0 {
		return []model.Resource{}, nil
	}

	pool, err := s.List(ctx, p, repository.ResourceFilter{}, calendar.PageRequest{Page: 1, PageSize: recommendationPool})
	if err != nil {
		return nil, err
	}

	type scored struct {
		res   model.Resource
		score int
	}
	var candidates []scored
	for _, r := range pool.Items {
		if seen[r.ID] {
			continue
		}
		score := 0
		for _, t := range r.TagList() {
			if interests[t] {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{res: r, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	out := make([]model.Resource, 0, limit)
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		out = append(out, c.res)
	}
	return out, nil
}
