package calendar

import "testing"

func TestPaginate_Basic(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	page := Paginate(items, PageRequest{Page: 1, PageSize: 5})

	if len(page.Items) != 5 {
		t.Fatalf("expected 5 items on page 1, got %d", len(page.Items))
	}
	if page.HasPrev || !page.HasNext {
		t.Fatalf("unexpected prev/next on first page: %+v", page)
	}
	if page.Total != int64(len(items)) {
		t.Fatalf("expected Total=%d, got %d", len(items), page.Total)
	}
}

func TestPaginate_LastPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6}
	page := Paginate(items, PageRequest{Page: 2, PageSize: 4})

	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items on last page, got %d", len(page.Items))
	}
	if !page.HasPrev || page.HasNext {
		t.Fatalf("unexpected prev/next on last page: %+v", page)
	}
}

func TestPaginate_Empty(t *testing.T) {
	page := Paginate([]int(nil), PageRequest{})

	if len(page.Items) != 0 || page.Items == nil {
		t.Fatalf("expected empty non-nil items, got %v", page.Items)
	}
	if page.HasNext || page.HasPrev {
		t.Fatalf("expected no prev/next for empty list")
	}
}

func TestPageRequest_Normalize(t *testing.T) {
	r := PageRequest{Page: 0, PageSize: 1000}.Normalize()
	if r.Page != 1 || r.PageSize != maxPageSize {
		t.Fatalf("unexpected normalized request %+v", r)
	}
	if (PageRequest{Page: 3, PageSize: 10}).Offset() != 20 {
		t.Fatalf("unexpected offset")
	}
}
