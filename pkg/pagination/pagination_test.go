package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseQuery(query string) Params {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		assert.Equal(t, Params{Page: DefaultPage, Limit: DefaultLimit, Offset: 0}, parseQuery(""))
	})

	t.Run("explicit page and limit", func(t *testing.T) {
		assert.Equal(t, Params{Page: 3, Limit: 10, Offset: 20}, parseQuery("page=3&limit=10"))
	})

	t.Run("garbage falls back to defaults", func(t *testing.T) {
		p := parseQuery("page=abc&limit=-4")
		assert.Equal(t, DefaultPage, p.Page)
		assert.Equal(t, DefaultLimit, p.Limit)
	})

	t.Run("limit is capped", func(t *testing.T) {
		assert.Equal(t, MaxLimit, parseQuery("limit=5000").Limit)
	})
}

func TestNew(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: 20, Offset: 0}, New(0, 0))
	assert.Equal(t, Params{Page: 2, Limit: 100, Offset: 100}, New(2, 101))
	assert.Equal(t, Params{Page: 4, Limit: 5, Offset: 15}, New(4, 5))
}
