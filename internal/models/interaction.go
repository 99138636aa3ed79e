// internal/models/interaction.go
package models

import "errors"

var ErrNegativeInteraction = errors.New("interaction history has a negative counter")

// InteractionHistory aggregates one viewer's interactions with one item.
type InteractionHistory struct {
	Views                int  `json:"views"`
	Saves                int  `json:"saves"`
	Applies              int  `json:"applies"`
	CompanyViews         int  `json:"companyViews"`
	TotalDurationSeconds int  `json:"totalDurationSeconds"`
	Liked                bool `json:"liked"`
	Commented            bool `json:"commented"`
	Shared               bool `json:"shared"`
}

// Validate rejects negative counters.
func (h InteractionHistory) Validate() error {
	if h.Views < 0 || h.Saves < 0 || h.Applies < 0 || h.CompanyViews < 0 || h.TotalDurationSeconds < 0 {
		return ErrNegativeInteraction
	}
	return nil
}

// SocialGraph holds the viewer's follow relationships and the stored
// locations of post authors.
type SocialGraph struct {
	FollowedAuthorIDs  []string          `json:"followedAuthorIds,omitempty"`
	FollowedCompanyIDs []string          `json:"followedCompanyIds,omitempty"`
	AuthorLocations    map[string]string `json:"authorLocations,omitempty"`
}

// Follows reports whether the viewer follows the author or the company.
func (g *SocialGraph) Follows(authorID, companyID string) bool {
	if g == nil {
		return false
	}
	if authorID != "" {
		for _, id := range g.FollowedAuthorIDs {
			if id == authorID {
				return true
			}
		}
	}
	if companyID != "" {
		for _, id := range g.FollowedCompanyIDs {
			if id == companyID {
				return true
			}
		}
	}
	return false
}

// AuthorLocation returns the stored location of an author.
func (g *SocialGraph) AuthorLocation(authorID string) string {
	if g == nil || g.AuthorLocations == nil {
		return ""
	}
	return g.AuthorLocations[authorID]
}
