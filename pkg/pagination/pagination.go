package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds page/limit pagination inputs from controllers.
type Params struct {
	Page  int
	Limit int
}

// FromQuery extracts pagination params from a URL query string.
func FromQuery(values url.Values) Params {
	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))
	return Normalize(Params{Page: page, Limit: limit})
}

// Normalize enforces the configured defaults and maximums.
func Normalize(params Params) Params {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}
	return params
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages derives the page count for a total row count.
func TotalPages(totalCount int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := totalCount / int64(limit)
	if totalCount%int64(limit) != 0 {
		pages++
	}
	return int(pages)
}
