// Package pagination pages lazily produced result sets for list endpoints.
package pagination

import (
	"iter"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// MaxPage keeps (Page-1)*Limit far from int overflow.
	MaxPage = 1_000_000
)

// Params is the page a caller asked for. Page is 1-based.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Meta describes where a returned page sits in the full result set.
type Meta struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	Total       int  `json:"total"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// ParseParams reads ?page= and ?limit= from the request.
func ParseParams(r *http.Request) Params {
	return FromQuery(r.URL.Query())
}

// FromQuery falls back to defaults for missing or malformed values and caps
// limit at MaxLimit and page at MaxPage.
func FromQuery(q url.Values) Params {
	return Params{
		Page:  positiveInt(q.Get("page"), DefaultPage),
		Limit: positiveInt(q.Get("limit"), DefaultLimit),
	}.normalized()
}

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func (p Params) normalized() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	switch {
	case p.Limit < 1:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

// Meta computes page metadata for a result set of total items.
func (p Params) Meta(total int) Meta {
	p = p.normalized()
	pages := max((total+p.Limit-1)/p.Limit, 1)
	return Meta{
		Page:        p.Page,
		Limit:       p.Limit,
		TotalPages:  pages,
		Total:       total,
		HasNext:     p.Page < pages,
		HasPrevious: p.Page > 1,
	}
}

// Page walks seq once, keeping only the items that fall on the requested page.
// The whole sequence is counted so the returned Meta carries real totals.
func Page[T any](seq iter.Seq2[T, error], p Params) ([]T, Meta, error) {
	p = p.normalized()
	first := (p.Page - 1) * p.Limit

	items := make([]T, 0, p.Limit)
	total := 0
	for item, err := range seq {
		if err != nil {
			return nil, Meta{}, err
		}
		if total >= first && len(items) < p.Limit {
			items = append(items, item)
		}
		total++
	}
	return items, p.Meta(total), nil
}
