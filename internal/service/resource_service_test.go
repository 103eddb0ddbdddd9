package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/consulting-platform/internal/cache"
	"github.com/Leganyst/consulting-platform/internal/calendar"
	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/model"
	"github.com/Leganyst/consulting-platform/internal/repository"
)

var (
	pdfHead = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	pngHead = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		url     string
		head    []byte
		want    model.ResourceFileType
		wantErr bool
	}{
		{url: "https://cdn.example.com/guide.pdf", want: model.ResourceFileTypePDF},
		{url: "https://cdn.example.com/Guide.PDF?v=2", want: model.ResourceFileTypePDF},
		{url: "/files/contract.docx", want: model.ResourceFileTypeDocument},
		{url: "/files/contract.doc", want: model.ResourceFileTypeDocument},
		{url: "/media/talk.mp4", want: model.ResourceFileTypeVideo},
		{url: "/media/talk.mp3", want: model.ResourceFileTypeAudio},
		{url: "/img/chart.png", want: model.ResourceFileTypeImage},
		{url: "/img/chart.jpg", want: model.ResourceFileTypeImage},
		{url: "/img/chart.gif", want: model.ResourceFileTypeImage},
		{url: "/guide.pdf", head: pdfHead, want: model.ResourceFileTypePDF},
		{url: "/chart.png", head: pngHead, want: model.ResourceFileTypeImage},
		{url: "/chart.png", head: pdfHead, wantErr: true},
		{url: "/script.exe", wantErr: true},
		{url: "/noext", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := DetectFileType(tt.url, tt.head)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newStatsCache(t *testing.T) (*miniredis.Miniredis, cache.JSONCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, cache.NewRedisCache(rdb, "resource-stats", 5*time.Minute)
}

func (e env) resource(t *testing.T, svc *ResourceService, title string, premium bool, tags ...string) *model.Resource {
	t.Helper()
	r, err := svc.Create(context.Background(), e.admin, ResourceInput{
		Title:     title,
		FileURL:   "https://cdn.example.com/" + title + ".pdf",
		IsPremium: premium,
		Tags:      tags,
	})
	require.NoError(t, err)
	return r
}

func TestResourceCreateRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	svc := NewResourceService(e.deps, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, e.client, ResourceInput{Title: "x", FileURL: "/x.pdf"})
	assert.ErrorIs(t, err, domain.ErrDenied)

	_, err = svc.Create(ctx, e.admin, ResourceInput{Title: "x", FileURL: "/x.pdf", CategoryIDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	r, err := svc.Create(ctx, e.admin, ResourceInput{Title: "x", FileURL: "/x.mp4", Tags: []string{" Tax ", "tax", "LAW"}})
	require.NoError(t, err)
	assert.Equal(t, model.ResourceFileTypeVideo, r.FileType)
	assert.Equal(t, []string{"tax", "law"}, r.TagList())
}

func TestPremiumResourcesGatedByActiveProject(t *testing.T) {
	e := newEnv(t)
	svc := NewResourceService(e.deps, nil)
	ctx := context.Background()
	page := calendar.PageRequest{Page: 1, PageSize: 10}

	e.resource(t, svc, "free", false)
	premium := e.resource(t, svc, "premium", true)

	// у client проект в работе, у other — нет
	got, err := svc.List(ctx, e.client, repository.ResourceFilter{}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Total)

	got, err = svc.List(ctx, e.other, repository.ResourceFilter{}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Total)

	got, err = svc.List(ctx, e.admin, repository.ResourceFilter{}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Total)

	_, err = svc.Get(ctx, e.other, premium.ID)
	assert.ErrorIs(t, err, domain.ErrDenied)
	_, err = svc.Rate(ctx, e.other, premium.ID, RateInput{Score: 4})
	assert.ErrorIs(t, err, domain.ErrDenied)

	r, err := svc.Get(ctx, e.client, premium.ID)
	require.NoError(t, err)
	assert.Equal(t, premium.ID, r.ID)

	_, err = svc.Search(ctx, e.other, "  ", page)
	assert.ErrorIs(t, err, domain.ErrValidation)
	found, err := svc.Search(ctx, e.other, "fre", page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, found.Total)
}

func TestResourceStatsCachedAndInvalidated(t *testing.T) {
	e := newEnv(t)
	mr, stats := newStatsCache(t)
	svc := NewResourceService(e.deps, stats)
	ctx := context.Background()

	r := e.resource(t, svc, "guide", false)

	_, err := svc.Get(ctx, e.client, r.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, e.client, r.ID)
	require.NoError(t, err)

	s, err := svc.Stats(ctx, r.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.AccessCount, "repeat views are counted once per user")
	assert.Nil(t, s.AverageRating)
	assert.True(t, mr.Exists("resource-stats:"+r.ID.String()))

	_, err = svc.Rate(ctx, e.client, r.ID, RateInput{Score: 4})
	require.NoError(t, err)
	assert.False(t, mr.Exists("resource-stats:"+r.ID.String()), "rating drops the cached stats")

	_, err = svc.Rate(ctx, e.other, r.ID, RateInput{Score: 2})
	require.NoError(t, err)
	_, err = svc.Rate(ctx, e.other, r.ID, RateInput{Score: 9})
	assert.ErrorIs(t, err, domain.ErrValidation)

	s, err = svc.Stats(ctx, r.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.RatingCount)
	require.NotNil(t, s.AverageRating)
	assert.InDelta(t, 3.0, *s.AverageRating, 1e-9)

	_, err = svc.Stats(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecommendedByTagOverlap(t *testing.T) {
	e := newEnv(t)
	svc := NewResourceService(e.deps, nil)
	ctx := context.Background()

	seen := e.resource(t, svc, "vat-basics", false, "tax", "law")
	both := e.resource(t, svc, "vat-cases", false, "tax", "law")
	one := e.resource(t, svc, "payroll", false, "tax")
	e.resource(t, svc, "cooking", false, "food")

	recs, err := svc.Recommended(ctx, e.client, 5)
	require.NoError(t, err)
	assert.Empty(t, recs, "nothing viewed yet")

	_, err = svc.Get(ctx, e.client, seen.ID)
	require.NoError(t, err)

	recs, err = svc.Recommended(ctx, e.client, 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, both.ID, recs[0].ID)
	assert.Equal(t, one.ID, recs[1].ID)

	recs, err = svc.Recommended(ctx, e.client, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestResourceCategories(t *testing.T) {
	e := newEnv(t)
	svc := NewResourceService(e.deps, nil)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, e.client, CategoryInput{Name: "Finance"})
	assert.ErrorIs(t, err, domain.ErrDenied)

	parent, err := svc.CreateCategory(ctx, e.admin, CategoryInput{Name: "Finance"})
	require.NoError(t, err)
	child, err := svc.CreateCategory(ctx, e.admin, CategoryInput{Name: "Tax", ParentID: &parent.ID})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, e.admin, CategoryInput{Name: "Finance"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	r, err := svc.Create(ctx, e.admin, ResourceInput{Title: "vat", FileURL: "/vat.pdf", CategoryIDs: []uuid.UUID{child.ID}})
	require.NoError(t, err)

	tree, err := svc.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, child.ID, tree[0].Children[0].ID)

	got, err := svc.List(ctx, e.other, repository.ResourceFilter{CategoryID: &child.ID}, calendar.PageRequest{})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, r.ID, got.Items[0].ID)
}
