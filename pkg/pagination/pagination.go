// Package pagination provides page/limit request parsing and the paged
// response envelope used by all list endpoints.
package pagination

import (
	"net/url"
	"strconv"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Params holds sanitized pagination inputs.
type Params struct {
	Page  int
	Limit int
}

// FromQuery parses page and limit query parameters, falling back to defaults
// for missing or out-of-range values.
func FromQuery(q url.Values) Params {
	p := Params{Page: defaultPage, Limit: defaultLimit}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		p.Limit = min(v, maxLimit)
	}
	return p
}

// Offset returns the number of records to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is the envelope returned by paginated list operations.
type Page[T any] struct {
	Docs       []T `json:"docs"`
	TotalDocs  int `json:"totalDocs"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPage assembles an envelope for one page of results.
func NewPage[T any](docs []T, total int, params Params) Page[T] {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}
	if docs == nil {
		docs = []T{}
	}
	return Page[T]{
		Docs:       docs,
		TotalDocs:  total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
	}
}

// Slice applies params to an already-materialized result set. Memory stores
// use it; SQL stores page in the query instead.
func Slice[T any](all []T, params Params) Page[T] {
	total := len(all)
	start := params.Offset()
	if start > total {
		start = total
	}
	end := min(start+params.Limit, total)
	return NewPage(all[start:end], total, params)
}
