// internal/workers/feed/diversify-feed/models.go
package diversifyfeed

import (
	"feed-ranking-workers/internal/models"
	"feed-ranking-workers/internal/ranking"
)

type Input struct {
	ScoredItems              []models.ScoredItem `json:"scoredItems"`
	Page                     int                 `json:"page,omitempty"`
	PageSize                 int                 `json:"pageSize,omitempty"`
	MaxConsecutiveSameType   int                 `json:"maxConsecutiveSameType,omitempty"`
	MaxConsecutiveSameAuthor int                 `json:"maxConsecutiveSameAuthor,omitempty"`
}

type Output struct {
	Feed  models.FeedPage        `json:"feed"`
	Stats ranking.DiversityStats `json:"stats"`
}
