package pkg

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginatePageSizes(t *testing.T) {
	for _, perPage := range []int{1, 3, 10} {
		for _, total := range []int{1, 2, 9, 10, 11, 13, 30} {
			items := seq(total)
			wantPages := (total + perPage - 1) / perPage

			first := Paginate(items, perPage, "1")
			assert.Equal(t, wantPages, first.NumPages, "per=%d total=%d", perPage, total)

			seen := 0
			for n := 1; n <= wantPages; n++ {
				p := Paginate(items, perPage, strconv.Itoa(n))
				want := perPage
				if n == wantPages && total%perPage != 0 {
					want = total % perPage
				}
				assert.Equal(t, want, p.Len(), "per=%d total=%d page=%d", perPage, total, n)
				assert.Equal(t, items[seen], p.Items[0])
				seen += p.Len()
			}
			assert.Equal(t, total, seen)
		}
	}
}

func TestPaginateBadInput(t *testing.T) {
	items := seq(13)

	tests := []struct {
		raw  string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"2.0", 1},
		{"2", 2},
		{"0", 2},
		{"-4", 2},
		{"99", 2},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p := Paginate(items, 10, tt.raw)
			assert.Equal(t, tt.want, p.Number)
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate([]string{}, 10, "3")
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 1, p.NumPages)
	assert.Equal(t, 0, p.Len())
	assert.NotNil(t, p.Items)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrevious)
}

func TestResolveWindow(t *testing.T) {
	w := Resolve("2", 13, 10)
	assert.Equal(t, 10, w.Offset)
	assert.Equal(t, 3, w.Limit)

	p := NewPage([]int{1, 2, 3}, w)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrevious)

	w = Resolve("1", 13, 0)
	assert.Equal(t, DefaultPerPage, w.PerPage)
}
