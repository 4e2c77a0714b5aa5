package pagination

const (
	// DefaultPageSize is the standard page size when one is not configured.
	DefaultPageSize = 10
	// MaxPageSize caps how many rows a single page can show.
	MaxPageSize = 100
)

// NormalizeSize enforces the default and maximum page sizes.
func NormalizeSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// TotalPages returns ceil(total/size) with a floor of one page.
func TotalPages(total, size int) int {
	size = NormalizeSize(size)
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Clamp keeps page within [1, TotalPages(total, size)].
func Clamp(page, total, size int) int {
	if page < 1 {
		return 1
	}
	if last := TotalPages(total, size); page > last {
		return last
	}
	return page
}

// Bounds returns the half-open index range [start, end) of a 1-based page.
func Bounds(page, total, size int) (int, int) {
	size = NormalizeSize(size)
	page = Clamp(page, total, size)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := page * size
	if end > total {
		end = total
	}
	if start < 0 {
		start = 0
	}
	return start, end
}

// Slice returns the rows visible on the given 1-based page.
func Slice[T any](rows []T, page, size int) []T {
	start, end := Bounds(page, len(rows), size)
	return rows[start:end]
}

// Page describes the pagination state shown alongside a list.
type Page struct {
	Number     int  `json:"page"`
	Size       int  `json:"page_size"`
	TotalRows  int  `json:"total_rows"`
	TotalPages int  `json:"total_pages"`
	IsFirst    bool `json:"is_first_page"`
	IsLast     bool `json:"is_last_page"`
}

// Describe builds the Page for the given position.
func Describe(page, total, size int) Page {
	size = NormalizeSize(size)
	page = Clamp(page, total, size)
	pages := TotalPages(total, size)
	return Page{
		Number:     page,
		Size:       size,
		TotalRows:  total,
		TotalPages: pages,
		IsFirst:    page <= 1,
		IsLast:     page >= pages,
	}
}
