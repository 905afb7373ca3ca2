// Package pagination pages result sets that are filtered in process.
package pagination

import (
	"net/url"
	"strconv"
)

const (
	defaultPerPage = 24
	maxPerPage     = 96
)

// Params is a 1-based page request.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultParams returns the first page at the default size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: defaultPerPage}
}

// FromQuery reads page and per_page from q. Out-of-range or malformed
// values fall back to the defaults.
func FromQuery(q url.Values) Params {
	p := DefaultParams()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 && v <= maxPerPage {
		p.PerPage = v
	}
	return p
}

// Offset is the index of the first item on the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Result is one page plus the totals needed to render page links.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Paginate cuts the requested page out of all. A page past the end yields
// an empty Data slice, never nil.
func Paginate[T any](all []T, p Params) Result[T] {
	total := len(all)
	totalPages := (total + p.PerPage - 1) / p.PerPage

	start := min(p.Offset(), total)
	end := min(start+p.PerPage, total)
	data := make([]T, end-start)
	copy(data, all[start:end])

	return Result[T]{
		Data:       data,
		TotalCount: total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
