// internal/workers/feed/rank-feed/config.go
package rankfeed

import (
	"time"

	"feed-ranking-workers/internal/ranking"
)

type Config struct {
	Timeout           time.Duration
	SlowPassThreshold time.Duration
	Diversity         ranking.DiversityConfig
	PageSize          int
	MaxPageSize       int
	// CandidateLimit caps each candidate source separately.
	CandidateLimit int
	JobLookback    time.Duration
	PostLookback   time.Duration
	RequireProfile bool
}

func LoadConfig() *Config {
	defaults := ranking.DefaultConfig()
	return &Config{
		Timeout:           30 * time.Second,
		SlowPassThreshold: 500 * time.Millisecond,
		Diversity:         defaults.Diversity,
		PageSize:          ranking.DefaultPageSize,
		MaxPageSize:       ranking.MaxPageSize,
		CandidateLimit:    200,
		JobLookback:       defaults.JobDecayWindow,
		PostLookback:      defaults.PostDecayWindow,
	}
}
