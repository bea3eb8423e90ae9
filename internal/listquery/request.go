// Package listquery builds paginated, sortable and filterable list queries
// over a whitelisted set of entity fields.
package listquery

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/webbase/adminapi/internal/apperr"
)

// Paging defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 500
)

// ErrInvalidPage is returned for a negative or unparsable page index.
var ErrInvalidPage = errors.New("invalid page index")

// ErrInvalidSortField is returned when the sort expression names a field the
// entity does not expose, or is malformed.
var ErrInvalidSortField = errors.New("invalid sort field")

// ErrInvalidParam is returned for an unparsable query parameter.
var ErrInvalidParam = errors.New("invalid query parameter")

// Request describes which page of a list to return and in which order.
type Request struct {
	PageIndex int
	PageSize  int
	SortBy    string
}

// Normalize applies the page size default and ceiling and rejects a
// negative page index.
func (r Request) Normalize() (Request, error) {
	if r.PageIndex < 0 {
		return r, apperr.ClientInput("INVALID_PAGE", ErrInvalidPage, "pageIndex must be zero or greater")
	}
	if r.PageSize <= 0 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
	r.SortBy = strings.TrimSpace(r.SortBy)
	return r, nil
}

// ParseRequest reads pageIndex, pageSize and sortBy (or orderBy) from query
// parameters. Absent values keep their defaults.
func ParseRequest(q url.Values) (Request, error) {
	var req Request

	if v := q.Get("pageIndex"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, apperr.ClientInput("INVALID_PAGE", ErrInvalidPage, "pageIndex must be an integer")
		}
		req.PageIndex = n
	}

	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, apperr.ClientInput("INVALID_PARAM", ErrInvalidParam, "pageSize must be an integer")
		}
		req.PageSize = n
	}

	req.SortBy = q.Get("sortBy")
	if req.SortBy == "" {
		req.SortBy = q.Get("orderBy")
	}

	return req.Normalize()
}

// TotalPages returns ceil(total / pageSize), or 0 when there is nothing to
// page through.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
