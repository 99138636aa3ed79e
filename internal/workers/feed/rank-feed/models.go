// internal/workers/feed/rank-feed/models.go
package rankfeed

import (
	"feed-ranking-workers/internal/models"
	"feed-ranking-workers/internal/ranking"
)

type Input struct {
	UserID           string `json:"userId"`
	Page             int    `json:"page,omitempty"`
	PageSize         int    `json:"pageSize,omitempty"`
	IncludeJobs      *bool  `json:"includeJobs,omitempty"`
	IncludePosts     *bool  `json:"includePosts,omitempty"`
	IncludeBreakdown *bool  `json:"includeBreakdown,omitempty"`
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

type Output struct {
	Feed     models.FeedPage        `json:"feed"`
	Rejected []models.ItemError     `json:"rejected"`
	Stats    ranking.DiversityStats `json:"stats"`
}
