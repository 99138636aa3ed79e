// internal/store/posts.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feed-ranking-workers/internal/models"
)

const selectRecentPostsSQL = `
	SELECT p.id, p.content, p.author_id,
	       COALESCE(a.display_name, ''), COALESCE(a.location, ''), COALESCE(p.company_id, ''),
	       p.created_at, p.reactions_count, p.comments_count, p.shares_count
	FROM posts p
	LEFT JOIN user_profiles a ON a.user_id = p.author_id
	WHERE p.created_at >= $1 AND p.deleted_at IS NULL
	ORDER BY p.created_at DESC
	LIMIT $2`

// PostStore lists recent posts as feed candidates.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a post source.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

func (s *PostStore) Recent(ctx context.Context, since time.Time, limit int) ([]models.CandidateItem, error) {
	rows, err := s.db.QueryContext(ctx, selectRecentPostsSQL, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var out []models.CandidateItem
	for rows.Next() {
		var id string
		var p models.Post
		if err := rows.Scan(&id, &p.Content, &p.AuthorID, &p.AuthorName, &p.AuthorLocation,
			&p.CompanyID, &p.CreatedAt, &p.ReactionsCount, &p.CommentsCount, &p.SharesCount); err != nil {
			return nil, fmt.Errorf("scan posts: %w", err)
		}
		out = append(out, models.NewPostCandidate(id, p))
	}
	return out, rows.Err()
}
