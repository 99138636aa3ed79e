// internal/workers/feed/score-feed-items/models.go
package scorefeeditems

import (
	"encoding/json"

	"feed-ranking-workers/internal/models"
)

// Input carries the candidates plus any viewer context the caller already
// has. Candidates are decoded one by one so a malformed entry is rejected
// on its own.
type Input struct {
	UserID             string                               `json:"userId"`
	Profile            *models.Profile                      `json:"profile,omitempty"`
	Candidates         []json.RawMessage                    `json:"candidates"`
	Interactions       map[string]models.InteractionHistory `json:"interactions,omitempty"`
	FollowedAuthorIDs  []string                             `json:"followedAuthorIds,omitempty"`
	FollowedCompanyIDs []string                             `json:"followedCompanyIds,omitempty"`
	AuthorLocations    map[string]string                    `json:"authorLocations,omitempty"`
	IncludeBreakdown   *bool                                `json:"includeBreakdown,omitempty"`
}

// socialGraph is nil unless the caller sent any follow data.
func (in *Input) socialGraph() *models.SocialGraph {
	if in.FollowedAuthorIDs == nil && in.FollowedCompanyIDs == nil && in.AuthorLocations == nil {
		return nil
	}
	return &models.SocialGraph{
		FollowedAuthorIDs:  in.FollowedAuthorIDs,
		FollowedCompanyIDs: in.FollowedCompanyIDs,
		AuthorLocations:    in.AuthorLocations,
	}
}

type Output struct {
	ScoredItems   []models.ScoredItem `json:"scoredItems"`
	Rejected      []models.ItemError  `json:"rejected"`
	ScoredCount   int                 `json:"scoredCount"`
	RejectedCount int                 `json:"rejectedCount"`
}
