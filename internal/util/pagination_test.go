package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	cases := []struct {
		name          string
		page, size    int
		offset, limit int
	}{
		{"first page", 1, 10, 0, 10},
		{"third page", 3, 20, 40, 20},
		{"zero page clamps to first", 0, 10, 0, 10},
		{"negative size falls back", 2, -5, 10, 10},
		{"oversized falls back", 1, 500, 0, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			offset, limit := Window(tc.page, tc.size)
			require.Equal(t, tc.offset, offset)
			require.Equal(t, tc.limit, limit)
		})
	}
}

func TestTotalPages(t *testing.T) {
	require.Equal(t, int64(0), TotalPages(0, 10))
	require.Equal(t, int64(1), TotalPages(10, 10))
	require.Equal(t, int64(2), TotalPages(11, 10))
	require.Equal(t, int64(0), TotalPages(5, 0))
}
