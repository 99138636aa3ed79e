// Package store loads the inputs of a ranking pass: profiles, interaction
// history, follows, candidate posts and jobs, plus cached scores.
package store

import (
	"context"
	"errors"
	"time"

	"feed-ranking-workers/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileProvider interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// InteractionProvider returns the viewer's aggregated history keyed by item id.
// Items without history are absent from the map.
type InteractionProvider interface {
	GetInteractions(ctx context.Context, userID string, itemIDs []string) (map[string]models.InteractionHistory, error)
}

// SocialGraphProvider returns follows and, for the given authors, their
// stored locations.
type SocialGraphProvider interface {
	GetSocialGraph(ctx context.Context, userID string, authorIDs []string) (*models.SocialGraph, error)
}

// CandidateSource lists candidate items created at or after since, newest
// first.
type CandidateSource interface {
	Recent(ctx context.Context, since time.Time, limit int) ([]models.CandidateItem, error)
}
