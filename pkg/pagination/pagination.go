package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize clamps page and limit to usable values.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// Offset is the number of rows to skip for the page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Page is the list envelope returned to clients.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewPage builds the envelope; base is the request URL whose page query
// parameter is rewritten for the next and previous links.
func NewPage[T any](results []T, total int64, params Params, base *url.URL) Page[T] {
	params = params.Normalize()
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: total, Results: results}
	if base == nil {
		return page
	}
	if int64(params.Page*params.Limit) < total {
		next := pageURL(base, params.Page+1)
		page.Next = &next
	}
	if params.Page > 1 {
		prev := pageURL(base, params.Page-1)
		page.Previous = &prev
	}
	return page
}

func pageURL(base *url.URL, page int) string {
	u := *base
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Map converts every result with fn, keeping the pagination metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := Page[U]{Count: p.Count, Next: p.Next, Previous: p.Previous, Results: make([]U, 0, len(p.Results))}
	for _, item := range p.Results {
		out.Results = append(out.Results, fn(item))
	}
	return out
}
