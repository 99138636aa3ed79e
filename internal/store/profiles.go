// internal/store/profiles.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"feed-ranking-workers/internal/models"

	"github.com/lib/pq"
)

const (
	selectProfileSQL = `
		SELECT user_id, COALESCE(headline, ''), COALESCE(location, ''),
		       COALESCE(preferred_location, ''), COALESCE(sector, ''), skills
		FROM user_profiles
		WHERE user_id = $1`

	selectExperienceSQL = `
		SELECT COALESCE(title, ''), COALESCE(company, ''), start_date, end_date, is_current
		FROM user_experiences
		WHERE user_id = $1
		ORDER BY start_date DESC NULLS LAST`
)

// ProfileStore reads profiles and their experience entries from Postgres.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a profile store.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// GetProfile loads the profile and its experience. Unknown users return
// ErrProfileNotFound.
func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	var skills pq.StringArray

	err := s.db.QueryRowContext(ctx, selectProfileSQL, userID).Scan(
		&p.UserID, &p.Headline, &p.Location, &p.PreferredLocation, &p.Sector, &skills,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.Skills = []string(skills)

	experience, err := s.experience(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Experience = experience

	return &p, nil
}

func (s *ProfileStore) experience(ctx context.Context, userID string) ([]models.Experience, error) {
	rows, err := s.db.QueryContext(ctx, selectExperienceSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("query experience: %w", err)
	}
	defer rows.Close()

	var out []models.Experience
	for rows.Next() {
		var e models.Experience
		var start, end sql.NullTime
		if err := rows.Scan(&e.Title, &e.Company, &start, &end, &e.Current); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		if start.Valid {
			e.StartDate = start.Time
		}
		if end.Valid {
			t := end.Time
			e.EndDate = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
