// Package util holds the pagination arithmetic shared by the list endpoints.
package util

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Window converts 1-based page/size query values into an offset/limit pair.
// Out-of-range sizes are clamped to the default.
func Window(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return (page - 1) * size, size
}

// TotalPages reports how many pages of the given size cover total rows.
func TotalPages(total int64, size int) int64 {
	if size <= 0 {
		return 0
	}
	return (total + int64(size) - 1) / int64(size)
}
