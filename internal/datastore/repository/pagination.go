package repository

// Pagination defaults.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page selects a 1-based page of results.
type Page struct {
	Page  int
	Limit int
}

// normalize clamps the page into a usable range.
func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.Limit < 1:
		p.Limit = DefaultPageLimit
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}

// PageMeta describes a paginated result.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func newPageMeta(p Page, total int64) PageMeta {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return PageMeta{Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}
