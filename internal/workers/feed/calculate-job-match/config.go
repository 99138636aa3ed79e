// internal/workers/feed/calculate-job-match/config.go
package calculatejobmatch

import "time"

type Config struct {
	Timeout time.Duration
	// RequireProfile turns an unknown user into PROFILE_NOT_FOUND instead of
	// an all-zero match.
	RequireProfile bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
