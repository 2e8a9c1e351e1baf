package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeItems(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestPaginate(t *testing.T) {
	items := makeItems(37)

	t.Run("Should return the partial last page", func(t *testing.T) {
		page, meta := Paginate(items, 4, 10)

		assert.Len(t, page, 7)
		assert.Equal(t, 30, page[0])
		assert.Equal(t, Pagination{CurrentPage: 4, TotalPages: 4, TotalItems: 37, ItemsPerPage: 10}, meta)
	})

	t.Run("Should return an empty slice past the end", func(t *testing.T) {
		page, meta := Paginate(items, 5, 10)

		assert.NotNil(t, page)
		assert.Empty(t, page)
		assert.Equal(t, 4, meta.TotalPages)
		assert.Equal(t, 37, meta.TotalItems)
	})

	t.Run("Should report zero pages for an empty set", func(t *testing.T) {
		page, meta := Paginate([]int{}, 1, 10)

		assert.Empty(t, page)
		assert.Equal(t, 0, meta.TotalPages)
	})

	t.Run("Should reject a zero page number without panicking", func(t *testing.T) {
		page, _ := Paginate(items, 0, 10)
		assert.Empty(t, page)
	})
}

func TestCalculateTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{37, 10, 4},
		{5, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateTotalPages(tt.total, tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}

func TestExtractPaginationParams(t *testing.T) {
	t.Run("Should use defaults", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/tokens", nil)
		params := ExtractPaginationParams(r, 100, 250)
		assert.Equal(t, PaginationParams{Page: 1, PageSize: 100}, params)
	})

	t.Run("Should clamp the page size", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/tokens?page=3&limit=999", nil)
		params := ExtractPaginationParams(r, 100, 250)
		assert.Equal(t, PaginationParams{Page: 3, PageSize: 250}, params)
		assert.Equal(t, 500, params.CalculateOffset())
	})

	t.Run("Should ignore invalid values", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/tokens?page=-1&limit=abc", nil)
		params := ExtractPaginationParams(r, 20, 100)
		assert.Equal(t, PaginationParams{Page: 1, PageSize: 20}, params)
	})
}
