package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{100, 7, 15},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}

func TestSlicesCoverRowsWithoutOverlap(t *testing.T) {
	for total := 0; total <= 37; total++ {
		for _, size := range []int{1, 3, 10, 12} {
			rows := make([]int, total)
			for i := range rows {
				rows[i] = i
			}

			var seen []int
			for page := 1; page <= TotalPages(total, size); page++ {
				seen = append(seen, Slice(rows, page, size)...)
			}
			require.Equal(t, rows, append([]int{}, seen...)[:len(rows)], "total=%d size=%d", total, size)
			require.Len(t, seen, total, "total=%d size=%d", total, size)
		}
	}
}

func TestDescribeLastPage(t *testing.T) {
	page := Describe(3, 25, 10)
	assert.Equal(t, 3, page.Number)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.IsLast)
	assert.False(t, page.IsFirst)

	start, end := Bounds(3, 25, 10)
	assert.Equal(t, 20, start)
	assert.Equal(t, 25, end)
}

func TestClampAndNormalize(t *testing.T) {
	assert.Equal(t, 1, Clamp(0, 25, 10))
	assert.Equal(t, 3, Clamp(9, 25, 10))
	assert.Equal(t, DefaultPageSize, NormalizeSize(0))
	assert.Equal(t, MaxPageSize, NormalizeSize(1000))
}
