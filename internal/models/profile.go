// internal/models/profile.go
package models

import (
	"errors"
	"time"
)

var ErrNegativeDuration = errors.New("experience entry ends before it starts")

// Profile is the read-only snapshot of a user profile used for scoring.
type Profile struct {
	UserID            string       `json:"userId"`
	Skills            []string     `json:"skills"`
	Location          string       `json:"location"`
	PreferredLocation string       `json:"preferredLocation,omitempty"`
	Sector            string       `json:"sector"`
	Headline          string       `json:"headline"`
	Experience        []Experience `json:"experience"`
}

// Experience is one entry of the profile work history.
type Experience struct {
	Title     string     `json:"title"`
	Company   string     `json:"company"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Current   bool       `json:"current"`
}

// End returns the effective end of the entry. Current entries and entries
// without an end date run until now.
func (e Experience) End(now time.Time) time.Time {
	if e.Current || e.EndDate == nil {
		return now
	}
	return *e.EndDate
}

// Duration is zero for entries without a start date or with an end before
// the start.
func (e Experience) Duration(now time.Time) time.Duration {
	if e.StartDate.IsZero() {
		return 0
	}
	d := e.End(now).Sub(e.StartDate)
	if d < 0 {
		return 0
	}
	return d
}

// YearsOfExperience sums the duration of every experience entry.
func (p *Profile) YearsOfExperience(now time.Time) float64 {
	if p == nil {
		return 0
	}
	var total time.Duration
	for _, e := range p.Experience {
		total += e.Duration(now)
	}
	return total.Hours() / 24 / 365.25
}

// CurrentTitle returns the title of the first entry marked current, falling
// back to the most recently started entry.
func (p *Profile) CurrentTitle() string {
	if p == nil || len(p.Experience) == 0 {
		return ""
	}
	for _, e := range p.Experience {
		if e.Current {
			return e.Title
		}
	}
	latest := p.Experience[0]
	for _, e := range p.Experience[1:] {
		if e.StartDate.After(latest.StartDate) {
			latest = e
		}
	}
	return latest.Title
}

// HasNegativeDuration reports entries whose end precedes their start.
func (p *Profile) HasNegativeDuration() bool {
	if p == nil {
		return false
	}
	for _, e := range p.Experience {
		if e.EndDate != nil && !e.Current && !e.StartDate.IsZero() && e.EndDate.Before(e.StartDate) {
			return true
		}
	}
	return false
}

// Validate reports malformed experience entries. Scoring tolerates them by
// counting their span as zero, so callers usually only log the error.
func (p *Profile) Validate() error {
	if p.HasNegativeDuration() {
		return ErrNegativeDuration
	}
	return nil
}
