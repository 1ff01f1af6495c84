package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Page: 1, Limit: 20}},
		{"?page=3&limit=10", Params{Page: 3, Limit: 10}},
		{"?page=0&limit=0", Params{Page: 1, Limit: 20}},
		{"?page=-2&limit=500", Params{Page: 1, Limit: 100}},
		{"?page=abc&limit=x", Params{Page: 1, Limit: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/items"+tt.query, nil)
			assert.Equal(t, tt.want, Parse(c))
		})
	}
}

func TestWrapCountsPages(t *testing.T) {
	p := New(2, 10)
	assert.Equal(t, 0, p.Wrap([]int{}, 0).Pages)
	assert.Equal(t, 1, p.Wrap(nil, 10).Pages)
	page := p.Wrap([]string{"a"}, 21)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 2, page.Page)
	assert.EqualValues(t, 21, page.Total)
}
