package pagination

// Page is one fixed-size slice of an ordered list. Current is 1-based and always
// within [1, Total]; Total is at least 1 even for an empty list.
type Page[T any] struct {
	Items   []T
	Current int
	Total   int
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Current > 1 }

// HasNext reports whether a following page exists.
func (p Page[T]) HasNext() bool { return p.Current < p.Total }

// Offset returns the index in the source list of the first item on the page.
func (p Page[T]) Offset(pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (p.Current - 1) * pageSize
}

// TotalPages returns ceil(count/pageSize), never less than 1.
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 || count <= 0 {
		return 1
	}
	return (count + pageSize - 1) / pageSize
}

// Clamp bounds requested into [1, total].
func Clamp(requested, total int) int {
	if total < 1 {
		total = 1
	}
	return min(max(requested, 1), total)
}

// Paginate slices items into the requested page, clamping out-of-range requests
// to the nearest valid page. A non-positive pageSize yields a single page.
func Paginate[T any](items []T, pageSize, requested int) Page[T] {
	if pageSize <= 0 {
		pageSize = max(len(items), 1)
	}
	total := TotalPages(len(items), pageSize)
	current := Clamp(requested, total)

	start := (current - 1) * pageSize
	end := min(start+pageSize, len(items))
	var slice []T
	if start < end {
		slice = items[start:end:end]
	}
	return Page[T]{Items: slice, Current: current, Total: total}
}
