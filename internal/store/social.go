// internal/store/social.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"feed-ranking-workers/internal/models"

	"github.com/lib/pq"
)

const (
	selectFollowsSQL = `
		SELECT followed_id, followed_type
		FROM user_follows
		WHERE follower_id = $1`

	selectAuthorLocationsSQL = `
		SELECT user_id, location
		FROM user_profiles
		WHERE user_id = ANY($1) AND location IS NOT NULL AND location <> ''`
)

const (
	followTypeUser    = "user"
	followTypeCompany = "company"
)

// SocialGraphStore reads follows and author locations from PostgreSQL.
type SocialGraphStore struct {
	db *sql.DB
}

// NewSocialGraphStore creates a social graph store.
func NewSocialGraphStore(db *sql.DB) *SocialGraphStore {
	return &SocialGraphStore{db: db}
}

func (s *SocialGraphStore) GetSocialGraph(ctx context.Context, userID string, authorIDs []string) (*models.SocialGraph, error) {
	graph := &models.SocialGraph{AuthorLocations: make(map[string]string)}

	rows, err := s.db.QueryContext(ctx, selectFollowsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("query follows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, kind string
		if err := rows.Scan(&id, &kind); err != nil {
			return nil, fmt.Errorf("scan follows: %w", err)
		}
		switch kind {
		case followTypeUser:
			graph.FollowedAuthorIDs = append(graph.FollowedAuthorIDs, id)
		case followTypeCompany:
			graph.FollowedCompanyIDs = append(graph.FollowedCompanyIDs, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(authorIDs) == 0 {
		return graph, nil
	}

	locRows, err := s.db.QueryContext(ctx, selectAuthorLocationsSQL, pq.Array(authorIDs))
	if err != nil {
		return nil, fmt.Errorf("query author locations: %w", err)
	}
	defer locRows.Close()

	for locRows.Next() {
		var id, location string
		if err := locRows.Scan(&id, &location); err != nil {
			return nil, fmt.Errorf("scan author locations: %w", err)
		}
		graph.AuthorLocations[id] = location
	}
	return graph, locRows.Err()
}
