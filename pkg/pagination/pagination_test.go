package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	p := FromRequest(httptest.NewRequest("GET", "/orders", nil))
	assert.Equal(t, DefaultParams(), p)
}

func TestFromRequest_CustomValues(t *testing.T) {
	p := FromRequest(httptest.NewRequest("GET", "/orders?page=3&per_page=5", nil))
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 5, p.PerPage)
	assert.Equal(t, 10, p.Offset)
}

func TestFromRequest_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"negative page", "?page=-1"},
		{"zero page", "?page=0"},
		{"non numeric", "?page=abc"},
		{"per page over cap", "?per_page=500"},
		{"per page zero", "?per_page=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromRequest(httptest.NewRequest("GET", "/orders"+tt.query, nil))
			assert.Equal(t, 1, p.Page)
			assert.Equal(t, defaultPerPage, p.PerPage)
		})
	}
}

func TestWindow(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, Window(items, Params{Page: 1, PerPage: 2, Offset: 0}))
	assert.Equal(t, []int{5}, Window(items, Params{Page: 3, PerPage: 2, Offset: 4}))
	assert.Empty(t, Window(items, Params{Page: 4, PerPage: 2, Offset: 6}))
}

func TestNewResult(t *testing.T) {
	r := NewResult([]string{"a", "b"}, 5, Params{Page: 2, PerPage: 2, Offset: 2})
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)

	empty := NewResult[string](nil, 0, DefaultParams())
	assert.NotNil(t, empty.Data)
	assert.False(t, empty.HasNext)
}
