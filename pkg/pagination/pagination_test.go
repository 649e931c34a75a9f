package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsNormalize(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit}, Params{}.Normalize())
	assert.Equal(t, Params{Page: 3, Limit: MaxLimit}, Params{Page: 3, Limit: 5000}.Normalize())
	assert.Equal(t, 20, Params{Page: 3, Limit: 10}.Offset())
	assert.Equal(t, 0, Params{Page: -1}.Offset())
}

func TestNewPageLinks(t *testing.T) {
	base, err := url.Parse("http://localhost:8000/store/products/?collection_id=2&page=2")
	require.NoError(t, err)

	page := NewPage([]int{11, 12}, 25, Params{Page: 2, Limit: 10}, base)
	require.NotNil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://localhost:8000/store/products/?collection_id=2&page=3", *page.Next)
	assert.Equal(t, "http://localhost:8000/store/products/?collection_id=2", *page.Previous)

	last := NewPage([]int{21}, 25, Params{Page: 3, Limit: 10}, base)
	assert.Nil(t, last.Next)
}

func TestNewPageEmptyResultsEncodeAsList(t *testing.T) {
	page := NewPage[int](nil, 0, Params{}, nil)
	assert.NotNil(t, page.Results)
	assert.Nil(t, page.Next)
	assert.Nil(t, page.Previous)
}

func TestMap(t *testing.T) {
	page := Map(NewPage([]int{1, 2}, 2, Params{}, nil), func(v int) string {
		if v == 1 {
			return "one"
		}
		return "two"
	})
	assert.Equal(t, []string{"one", "two"}, page.Results)
	assert.Equal(t, int64(2), page.Count)
}
