package common

import (
	"net/http"
	"strconv"
)

// MaxPerPage caps page sizes so a single list call cannot scan an entire
// catalog or order history.
const MaxPerPage = 100

// Pagination is the metadata block attached to every list response.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParsePagination reads page and page-size query parameters. Both per_page
// and the older limit name are accepted; per_page wins when both are sent.
// Out-of-range values fall back to the defaults rather than erroring.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	q := r.URL.Query()
	page = positiveInt(q.Get("page"), 1)
	perPage = positiveInt(q.Get("limit"), defaultPerPage)
	if v := q.Get("per_page"); v != "" {
		perPage = positiveInt(v, perPage)
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
