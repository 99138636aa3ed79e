// internal/workers/feed/calculate-job-match/models.go
package calculatejobmatch

import "feed-ranking-workers/internal/models"

type Input struct {
	UserID  string          `json:"userId"`
	Profile *models.Profile `json:"profile,omitempty"`
	JobID   string          `json:"jobId,omitempty"`
	Job     models.Job      `json:"job"`
}

type Output struct {
	UserID     string             `json:"userId,omitempty"`
	JobID      string             `json:"jobId,omitempty"`
	MatchScore float64            `json:"matchScore"`
	Breakdown  MatchBreakdown     `json:"breakdown"`
	Weights    map[string]float64 `json:"weights"`
}

type MatchBreakdown struct {
	Skills   float64 `json:"skills"`
	Location float64 `json:"location"`
	Level    float64 `json:"level"`
	Sector   float64 `json:"sector"`
}
