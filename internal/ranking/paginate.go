package ranking

import "feed-ranking-workers/internal/models"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paginate slices a 1-based page out of an ordered feed. Out-of-range pages
// return an empty item list with the correct total.
func Paginate(items []models.ScoredItem, page, pageSize int) models.FeedPage {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := len(items)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := min(start+pageSize, total)

	window := make([]models.ScoredItem, end-start)
	copy(window, items[start:end])
	return models.FeedPage{
		Items:    window,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasMore:  end < total,
	}
}
