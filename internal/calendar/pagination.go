package calendar

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page описывает одну страницу элементов.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	HasNext  bool  `json:"has_next"`
	HasPrev  bool  `json:"has_prev"`
	Total    int64 `json:"total"`
}

// PageRequest — номер страницы (с 1) и её размер.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize подставляет дефолты и ограничивает размер страницы.
func (r PageRequest) Normalize() PageRequest {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.PageSize <= 0 {
		r.PageSize = defaultPageSize
	}
	if r.PageSize > maxPageSize {
		r.PageSize = maxPageSize
	}
	return r
}

func (r PageRequest) Limit() int  { return r.Normalize().PageSize }
func (r PageRequest) Offset() int { n := r.Normalize(); return (n.Page - 1) * n.PageSize }

// NewPage собирает страницу из уже выбранных из БД элементов и общего количества.
func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	req = req.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Page:     req.Page,
		PageSize: req.PageSize,
		HasPrev:  req.Page > 1,
		HasNext:  int64(req.Offset()+len(items)) < total,
		Total:    total,
	}
}

// Paginate возвращает срез items для указанной страницы и метаданные.
// Используется для выборок, которые фильтруются в памяти.
func Paginate[T any](items []T, req PageRequest) Page[T] {
	req = req.Normalize()
	total := len(items)

	start := req.Offset()
	if start > total {
		start = total
	}
	end := start + req.PageSize
	if end > total {
		end = total
	}

	return NewPage(items[start:end], req, int64(total))
}
