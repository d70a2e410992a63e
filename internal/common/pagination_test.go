package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePaginationDefaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/products", nil)
	page, perPage := ParsePagination(r, 20)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)
}

func TestParsePaginationPerPageWinsOverLimit(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/products?page=3&limit=10&per_page=25", nil)
	page, perPage := ParsePagination(r, 20)
	require.Equal(t, 3, page)
	require.Equal(t, 25, perPage)
}

func TestParsePaginationClampsAndIgnoresGarbage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/products?page=-1&per_page=5000", nil)
	page, perPage := ParsePagination(r, 20)
	require.Equal(t, 1, page)
	require.Equal(t, MaxPerPage, perPage)
}
