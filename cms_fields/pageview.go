package cms_fields

import (
	"math"
	"time"
)

// PageView is one recorded visit of a public page.
type PageView struct {
	ID          int64     `json:"id" db:"id"`
	Path        string    `json:"path" db:"path"`
	Referrer    string    `json:"referrer" db:"referrer"`
	VisitorHash string    `json:"-" db:"visitor_hash"`
	UserAgent   string    `json:"-" db:"user_agent"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ViewDay counts the views and distinct visitors of one UTC day, Date as YYYY-MM-DD.
type ViewDay struct {
	Date     string `json:"date" db:"day"`
	Views    int    `json:"views" db:"views"`
	Visitors int    `json:"visitors" db:"visitors"`
}

type ViewCount struct {
	Label string `json:"label" db:"label"`
	Count int    `json:"count" db:"n"`
}

// ViewRollup is a window of page views already counted by the database. Pages is ranked
// and cut to the requested limit; Referrers holds every raw referrer string.
type ViewRollup struct {
	Days      []ViewDay
	Visitors  int
	Pages     []ViewCount
	Referrers []ViewCount
}

type PageViewRequest struct {
	Path     string `json:"path" binding:"required,startswith=/,max=512"`
	Referrer string `json:"referrer" binding:"max=1024"`
}

// Pagination is a page window over a listing.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	// MaxPage keeps Offset inside a positive int32 for every allowed page size.
	MaxPage = math.MaxInt32 / MaxPerPage
)

// NewPagination clamps page to [1, MaxPage] and perPage to [1, MaxPerPage], using def when unset.
func NewPagination(page, perPage, def int) Pagination {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if def <= 0 {
		def = DefaultPerPage
	}
	if perPage <= 0 {
		perPage = def
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Pagination{Page: page, PerPage: perPage}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// PageResult is the envelope for paginated listings.
type PageResult[T any] struct {
	Result     []T `json:"result"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

func NewPageResult[T any](items []T, total int, p Pagination) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.PerPage > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return PageResult[T]{Result: items, Total: total, Page: p.Page, PerPage: p.PerPage, TotalPages: pages}
}
