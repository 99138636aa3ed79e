// internal/workers/feed/diversify-feed/config.go
package diversifyfeed

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
}

func LoadConfig() *Config {
	return &Config{
		Timeout:           10 * time.Second,
		SlowPassThreshold: 500 * time.Millisecond,
		Diversity:         ranking.DefaultConfig().Diversity,
		PageSize:          ranking.DefaultPageSize,
		MaxPageSize:       ranking.MaxPageSize,
	}
}
