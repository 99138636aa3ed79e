// internal/store/interactions.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"feed-ranking-workers/internal/models"

	"github.com/lib/pq"
)

// One row per recorded action; the query folds them into one history per item.
const selectInteractionsSQL = `
	SELECT item_id,
	       COUNT(*) FILTER (WHERE action = 'view'),
	       COUNT(*) FILTER (WHERE action = 'save'),
	       COUNT(*) FILTER (WHERE action = 'apply'),
	       COUNT(*) FILTER (WHERE action = 'company_view'),
	       COALESCE(SUM(duration_seconds), 0),
	       BOOL_OR(action = 'like'),
	       BOOL_OR(action = 'comment'),
	       BOOL_OR(action = 'share')
	FROM user_interactions
	WHERE user_id = $1 AND item_id = ANY($2)
	GROUP BY item_id`

// InteractionStore reads aggregated interactions from PostgreSQL.
type InteractionStore struct {
	db *sql.DB
}

// NewInteractionStore creates an interaction store.
func NewInteractionStore(db *sql.DB) *InteractionStore {
	return &InteractionStore{db: db}
}

func (s *InteractionStore) GetInteractions(ctx context.Context, userID string, itemIDs []string) (map[string]models.InteractionHistory, error) {
	out := make(map[string]models.InteractionHistory)
	if len(itemIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, selectInteractionsSQL, userID, pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID string
		var h models.InteractionHistory
		var liked, commented, shared sql.NullBool
		if err := rows.Scan(&itemID, &h.Views, &h.Saves, &h.Applies, &h.CompanyViews,
			&h.TotalDurationSeconds, &liked, &commented, &shared); err != nil {
			return nil, fmt.Errorf("scan interactions: %w", err)
		}
		h.Liked = liked.Bool
		h.Commented = commented.Bool
		h.Shared = shared.Bool
		out[itemID] = h
	}
	return out, rows.Err()
}
