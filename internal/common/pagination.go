package common

import (
	"net/http"
	"strconv"
)

// Pagination is the paging block list endpoints return alongside their data.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// maxPerPage caps client-supplied page sizes.
const maxPerPage = 100

// ParsePagination reads the page and limit query parameters, falling back to
// page 1 and the given default size when absent or unparsable.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page = 1
	perPage = defaultPerPage
	query := r.URL.Query()
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return
}
