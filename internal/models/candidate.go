// internal/models/candidate.go
package models

import (
	"errors"
	"fmt"
	"time"
)

// ItemType distinguishes job and post candidates.
type ItemType string

const (
	ItemTypeJob  ItemType = "job"
	ItemTypePost ItemType = "post"
)

var (
	ErrMissingItemType = errors.New("candidate item has no type")
	ErrUnknownItemType = errors.New("candidate item has unknown type")
	ErrMissingPayload  = errors.New("candidate item payload does not match its type")
	ErrMissingItemID   = errors.New("candidate item has no id")
	ErrNegativeCounter = errors.New("candidate item has a negative counter")
)

// Job is a job posting candidate.
type Job struct {
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Skills            []string  `json:"skills"`
	Location          string    `json:"location"`
	Remote            bool      `json:"remote"`
	Level             string    `json:"level"`
	Category          string    `json:"category"`
	CompanyID         string    `json:"companyId,omitempty"`
	CompanyName       string    `json:"companyName,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	ViewsCount        int       `json:"viewsCount"`
	ApplicationsCount int       `json:"applicationsCount"`
}

// Post is a social post candidate.
type Post struct {
	Content        string    `json:"content"`
	AuthorID       string    `json:"authorId"`
	AuthorName     string    `json:"authorName,omitempty"`
	AuthorLocation string    `json:"authorLocation,omitempty"`
	CompanyID      string    `json:"companyId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	ReactionsCount int       `json:"reactionsCount"`
	CommentsCount  int       `json:"commentsCount"`
	SharesCount    int       `json:"sharesCount"`
}

// CandidateItem is a job or a post. Exactly one of Job and Post is set and
// it must agree with Type.
type CandidateItem struct {
	ID   string   `json:"id"`
	Type ItemType `json:"type"`
	Job  *Job     `json:"job,omitempty"`
	Post *Post    `json:"post,omitempty"`
}

// NewJobCandidate wraps a job as a candidate item.
func NewJobCandidate(id string, job Job) CandidateItem {
	return CandidateItem{ID: id, Type: ItemTypeJob, Job: &job}
}

// NewPostCandidate wraps a post as a candidate item.
func NewPostCandidate(id string, post Post) CandidateItem {
	return CandidateItem{ID: id, Type: ItemTypePost, Post: &post}
}

// AuthorID is the post author, or the hiring company for jobs.
func (c CandidateItem) AuthorID() string {
	switch c.Type {
	case ItemTypeJob:
		if c.Job != nil {
			return c.Job.CompanyID
		}
	case ItemTypePost:
		if c.Post != nil {
			return c.Post.AuthorID
		}
	}
	return ""
}

// Validate checks the id, the type/payload pairing and the counters.
func (c CandidateItem) Validate() error {
	if c.ID == "" {
		return ErrMissingItemID
	}
	switch c.Type {
	case "":
		return fmt.Errorf("item %s: %w", c.ID, ErrMissingItemType)
	case ItemTypeJob:
		if c.Job == nil {
			return fmt.Errorf("item %s: %w", c.ID, ErrMissingPayload)
		}
		if c.Job.ViewsCount < 0 || c.Job.ApplicationsCount < 0 {
			return fmt.Errorf("item %s: %w", c.ID, ErrNegativeCounter)
		}
	case ItemTypePost:
		if c.Post == nil {
			return fmt.Errorf("item %s: %w", c.ID, ErrMissingPayload)
		}
		if c.Post.ReactionsCount < 0 || c.Post.CommentsCount < 0 || c.Post.SharesCount < 0 {
			return fmt.Errorf("item %s: %w", c.ID, ErrNegativeCounter)
		}
	default:
		return fmt.Errorf("item %s (%q): %w", c.ID, c.Type, ErrUnknownItemType)
	}
	return nil
}
