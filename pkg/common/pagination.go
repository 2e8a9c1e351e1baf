package common

import (
	"net/http"
	"strconv"
)

// Pagination describes one page of a fully materialized result set
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
	ItemsPerPage int `json:"items_per_page"`
}

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page     int
	PageSize int
}

// ExtractPaginationParams reads page and limit from the query string,
// clamping limit to maxPageSize.
func ExtractPaginationParams(r *http.Request, defaultPageSize, maxPageSize int) PaginationParams {
	params := PaginationParams{Page: 1, PageSize: defaultPageSize}

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			if l > maxPageSize {
				l = maxPageSize
			}
			params.PageSize = l
		}
	}

	return params
}

// CalculateOffset calculates the index of the first item on the page
func (p PaginationParams) CalculateOffset() int {
	return (p.Page - 1) * p.PageSize
}

// CalculateTotalPages calculates total number of pages
func CalculateTotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize > 0 {
		pages++
	}
	return pages
}

// Paginate slices [start, start+size) out of items. Pages past the end
// yield an empty slice.
func Paginate[T any](items []T, page, pageSize int) ([]T, Pagination) {
	meta := Pagination{
		CurrentPage:  page,
		TotalPages:   CalculateTotalPages(len(items), pageSize),
		TotalItems:   len(items),
		ItemsPerPage: pageSize,
	}

	if page < 1 || pageSize <= 0 {
		return []T{}, meta
	}

	start := PaginationParams{Page: page, PageSize: pageSize}.CalculateOffset()
	if start >= len(items) {
		return []T{}, meta
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	return items[start:end], meta
}
