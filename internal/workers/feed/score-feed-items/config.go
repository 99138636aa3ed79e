// internal/workers/feed/score-feed-items/config.go
package scorefeeditems

import "time"

type Config struct {
	Timeout           time.Duration
	SlowPassThreshold time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		SlowPassThreshold: 500 * time.Millisecond,
	}
}
