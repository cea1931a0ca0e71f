// Package pagination is the uniform page/limit slicing contract shared by
// every listing endpoint.
package pagination

import "errors"

var (
	ErrInvalidPage  = errors.New("pagination: page must be a positive integer")
	ErrInvalidLimit = errors.New("pagination: limit must be a positive integer")
)

// Params is a validated 1-indexed page request.
type Params struct {
	Page  int
	Limit int
}

// PageInfo describes the full result set a page was cut from.
type PageInfo struct {
	Current int `json:"current"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
}

// New validates page/limit, substituting defaultLimit when limit is zero
// (i.e. absent from the request). Explicit non-positive values are rejected.
func New(page, limit, defaultLimit int) (Params, error) {
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return Params{}, ErrInvalidPage
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 {
		return Params{}, ErrInvalidLimit
	}
	return Params{Page: page, Limit: limit}, nil
}

// Offset is the number of items preceding this page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Info computes the page descriptor for a total match count.
func (p Params) Info(total int) PageInfo {
	pages := 0
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return PageInfo{Current: p.Page, Pages: pages, Total: total}
}

// Slice cuts one page out of an already-ordered slice. Pages past the end
// yield an empty slice, not an error.
func Slice[T any](items []T, p Params) ([]T, PageInfo) {
	info := p.Info(len(items))
	start := p.Offset()
	if start >= len(items) {
		return []T{}, info
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], info
}
