package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPaginationIndices(t *testing.T) {
	cases := []struct {
		name                      string
		page, size, total         int
		wantPages, wantStart, end int
	}{
		{"first page", 1, 20, 45, 3, 1, 20},
		{"middle page", 2, 20, 45, 3, 21, 40},
		{"last partial page", 3, 20, 45, 3, 41, 45},
		{"past the end", 4, 20, 45, 3, 0, 0},
		{"empty", 1, 20, 0, 0, 0, 0},
		{"exact fit", 2, 10, 20, 2, 11, 20},
		{"defaults", 0, 0, 5, 1, 1, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.size, tc.total)
			require.Equal(t, tc.wantPages, p.TotalPages)
			require.Equal(t, tc.wantStart, p.StartIndex)
			require.Equal(t, tc.end, p.EndIndex)
		})
	}
}

func TestNewPageNeverNil(t *testing.T) {
	page := NewPage[int](nil, ListParams{Page: 1, PageSize: 10}, 0)
	require.NotNil(t, page.Items)
	require.Empty(t, page.Items)
}

func TestListParamsClamp(t *testing.T) {
	require.Equal(t, DefaultPageSize, ListParams{}.Limit())
	require.Equal(t, MaxPageSize, ListParams{PageSize: 10_000}.Limit())
	require.Equal(t, 40, ListParams{Page: 3, PageSize: 20}.Offset())
	require.Equal(t, 0, ListParams{Page: 0, PageSize: 20}.Offset())
}
