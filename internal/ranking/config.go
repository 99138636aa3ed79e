package ranking

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidWeights = errors.New("invalid ranking weights")

// JobMatchWeights splits the candidate-to-job compatibility score.
type JobMatchWeights struct {
	Skills   float64 `mapstructure:"skills" json:"skills"`     // default 0.4
	Location float64 `mapstructure:"location" json:"location"` // default 0.2
	Level    float64 `mapstructure:"level" json:"level"`       // default 0.2
	Sector   float64 `mapstructure:"sector" json:"sector"`     // default 0.2
}

// JobFeedWeights composes the job relevance score.
type JobFeedWeights struct {
	Skills       float64 `mapstructure:"skills" json:"skills"`              // default 0.3
	Interactions float64 `mapstructure:"interactions" json:"interactions"`  // default 0.2
	JobProximity float64 `mapstructure:"job_proximity" json:"jobProximity"` // default 0.2
	Location     float64 `mapstructure:"location" json:"location"`          // default 0.15
	Popularity   float64 `mapstructure:"popularity" json:"popularity"`      // default 0.1
	Recency      float64 `mapstructure:"recency" json:"recency"`            // default 0.1
}

// PostFeedWeights composes the post relevance score.
type PostFeedWeights struct {
	FollowedAuthor       float64 `mapstructure:"followed_author" json:"followedAuthor"`             // default 0.25
	Relevance            float64 `mapstructure:"relevance" json:"relevance"`                        // default 0.10
	Engagement           float64 `mapstructure:"engagement" json:"engagement"`                      // default 0.25
	PreviousInteractions float64 `mapstructure:"previous_interactions" json:"previousInteractions"` // default 0.20
	Recency              float64 `mapstructure:"recency" json:"recency"`                            // default 0.10
	Popularity           float64 `mapstructure:"popularity" json:"popularity"`                      // default 0.10
}

// TierConfig splits a page between high, medium and low score tiers.
type TierConfig struct {
	HighMin     float64 `mapstructure:"high_min" json:"highMin"`         // default 70
	MediumMin   float64 `mapstructure:"medium_min" json:"mediumMin"`     // default 40
	HighShare   float64 `mapstructure:"high_share" json:"highShare"`     // default 0.5
	MediumShare float64 `mapstructure:"medium_share" json:"mediumShare"` // default 0.3
	LowShare    float64 `mapstructure:"low_share" json:"lowShare"`       // default 0.2
}

// DiversityConfig bounds runs of the same type or author.
type DiversityConfig struct {
	MaxConsecutiveSameType   int        `mapstructure:"max_consecutive_same_type" json:"maxConsecutiveSameType"`
	MaxConsecutiveSameAuthor int        `mapstructure:"max_consecutive_same_author" json:"maxConsecutiveSameAuthor"`
	Tiers                    TierConfig `mapstructure:"tiers" json:"tiers"`
}

// Config holds every weight, decay window and diversity limit used by the
// engine. It is passed explicitly to NewScorer and NewDiversifier.
type Config struct {
	JobMatch        JobMatchWeights `mapstructure:"job_match" json:"jobMatch"`
	JobFeed         JobFeedWeights  `mapstructure:"job_feed" json:"jobFeed"`
	PostFeed        PostFeedWeights `mapstructure:"post_feed" json:"postFeed"`
	JobDecayWindow  time.Duration   `mapstructure:"job_decay_window" json:"jobDecayWindow"`
	PostDecayWindow time.Duration   `mapstructure:"post_decay_window" json:"postDecayWindow"`
	Diversity       DiversityConfig `mapstructure:"diversity" json:"diversity"`
	Concurrency     int             `mapstructure:"concurrency" json:"concurrency"`
}

// DefaultConfig returns the production weights.
//
// Job match:  skills*0.4 + location*0.2 + level*0.2 + sector*0.2
// Job feed:   match*0.3 + interactions*0.2 + proximity*0.2 + location*0.15 + popularity*0.1 + recency*0.1
// Post feed:  follow*0.25 + relevance*0.1 + engagement*0.25 + previous*0.2 + recency*0.1 + popularity*0.1
func DefaultConfig() Config {
	return Config{
		JobMatch: JobMatchWeights{Skills: 0.4, Location: 0.2, Level: 0.2, Sector: 0.2},
		JobFeed: JobFeedWeights{
			Skills:       0.3,
			Interactions: 0.2,
			JobProximity: 0.2,
			Location:     0.15,
			Popularity:   0.1,
			Recency:      0.1,
		},
		PostFeed: PostFeedWeights{
			FollowedAuthor:       0.25,
			Relevance:            0.10,
			Engagement:           0.25,
			PreviousInteractions: 0.20,
			Recency:              0.10,
			Popularity:           0.10,
		},
		JobDecayWindow:  30 * 24 * time.Hour,
		PostDecayWindow: 168 * time.Hour,
		Diversity: DiversityConfig{
			MaxConsecutiveSameType:   3,
			MaxConsecutiveSameAuthor: 2,
			Tiers: TierConfig{
				HighMin:     70,
				MediumMin:   40,
				HighShare:   0.5,
				MediumShare: 0.3,
				LowShare:    0.2,
			},
		},
		Concurrency: 8,
	}
}

// WithDefaults fills zero-valued groups from DefaultConfig. A group is only
// replaced as a whole so partially configured weights still fail Validate.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.JobMatch == (JobMatchWeights{}) {
		c.JobMatch = d.JobMatch
	}
	if c.JobFeed == (JobFeedWeights{}) {
		c.JobFeed = d.JobFeed
	}
	if c.PostFeed == (PostFeedWeights{}) {
		c.PostFeed = d.PostFeed
	}
	if c.JobDecayWindow == 0 {
		c.JobDecayWindow = d.JobDecayWindow
	}
	if c.PostDecayWindow == 0 {
		c.PostDecayWindow = d.PostDecayWindow
	}
	if c.Diversity.MaxConsecutiveSameType == 0 {
		c.Diversity.MaxConsecutiveSameType = d.Diversity.MaxConsecutiveSameType
	}
	if c.Diversity.MaxConsecutiveSameAuthor == 0 {
		c.Diversity.MaxConsecutiveSameAuthor = d.Diversity.MaxConsecutiveSameAuthor
	}
	if c.Diversity.Tiers == (TierConfig{}) {
		c.Diversity.Tiers = d.Diversity.Tiers
	}
	if c.Concurrency == 0 {
		c.Concurrency = d.Concurrency
	}
	return c
}

const weightTolerance = 1e-6

// Validate checks weight sums, decay windows and diversity limits.
func (c Config) Validate() error {
	groups := map[string][]float64{
		"job_match": {c.JobMatch.Skills, c.JobMatch.Location, c.JobMatch.Level, c.JobMatch.Sector},
		"job_feed": {c.JobFeed.Skills, c.JobFeed.Interactions, c.JobFeed.JobProximity,
			c.JobFeed.Location, c.JobFeed.Popularity, c.JobFeed.Recency},
		"post_feed": {c.PostFeed.FollowedAuthor, c.PostFeed.Relevance, c.PostFeed.Engagement,
			c.PostFeed.PreviousInteractions, c.PostFeed.Recency, c.PostFeed.Popularity},
		"tier_shares": {c.Diversity.Tiers.HighShare, c.Diversity.Tiers.MediumShare, c.Diversity.Tiers.LowShare},
	}
	for name, ws := range groups {
		sum := 0.0
		for _, w := range ws {
			if w < 0 {
				return fmt.Errorf("%w: %s has a negative weight", ErrInvalidWeights, name)
			}
			sum += w
		}
		if math.Abs(sum-1.0) > weightTolerance {
			return fmt.Errorf("%w: %s sums to %.4f, want 1", ErrInvalidWeights, name, sum)
		}
	}
	if c.JobDecayWindow <= 0 || c.PostDecayWindow <= 0 {
		return fmt.Errorf("%w: decay windows must be positive", ErrInvalidWeights)
	}
	if c.Diversity.MaxConsecutiveSameType < 1 || c.Diversity.MaxConsecutiveSameAuthor < 1 {
		return fmt.Errorf("%w: diversity limits must be at least 1", ErrInvalidWeights)
	}
	if c.Diversity.Tiers.MediumMin > c.Diversity.Tiers.HighMin {
		return fmt.Errorf("%w: medium tier threshold above high tier threshold", ErrInvalidWeights)
	}
	return nil
}
