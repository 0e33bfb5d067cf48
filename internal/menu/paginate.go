package menu

// Paginate slices items into fixed-size pages. The requested page is clamped
// into [1, totalPages] rather than erroring, so out-of-range requests (after
// the underlying list shrinks, for example) degrade to the nearest valid page.
func Paginate[T any](items []T, pageSize, requested int) (page []T, current, total int) {
	if pageSize <= 0 {
		pageSize = 1
	}
	total = (len(items) + pageSize - 1) / pageSize
	if total < 1 {
		total = 1
	}
	current = requested
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}
	start := (current - 1) * pageSize
	if start >= len(items) {
		return nil, current, total
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], current, total
}
