// internal/models/score.go
package models

// ScoreBreakdown carries the total score with every sub-score (0-100) and
// the weight applied to it.
type ScoreBreakdown struct {
	Total      float64            `json:"total"`
	Components map[string]float64 `json:"components"`
	Weights    map[string]float64 `json:"weights,omitempty"`
}

// WeightedSum recomputes the unrounded total from the components.
func (b ScoreBreakdown) WeightedSum() float64 {
	sum := 0.0
	for name, v := range b.Components {
		sum += v * b.Weights[name]
	}
	return sum
}

// ScoredItem is a candidate with its score and optional breakdown.
type ScoredItem struct {
	ID        string          `json:"id"`
	Type      ItemType        `json:"type"`
	Score     float64         `json:"score"`
	AuthorID  string          `json:"authorId,omitempty"`
	Breakdown *ScoreBreakdown `json:"breakdown,omitempty"`
	Payload   *CandidateItem  `json:"payload,omitempty"`
}

// ItemError records why a candidate was rejected.
type ItemError struct {
	ItemID string `json:"id"`
	Error  string `json:"error"`
}

// FeedPage is one page of a ranked feed.
type FeedPage struct {
	RankingID string       `json:"rankingId,omitempty"`
	Items     []ScoredItem `json:"items"`
	Page      int          `json:"page"`
	PageSize  int          `json:"pageSize"`
	Total     int          `json:"total"`
	HasMore   bool         `json:"hasMore"`
}
