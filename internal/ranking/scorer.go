package ranking

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"feed-ranking-workers/internal/models"

	"golang.org/x/sync/errgroup"
)

// ScoreRequest is the per-viewer context shared by every candidate of a
// scoring pass.
type ScoreRequest struct {
	Profile      *models.Profile
	Interactions map[string]models.InteractionHistory
	Social       *models.SocialGraph
	Now          time.Time
}

func (r ScoreRequest) history(itemID string) models.InteractionHistory {
	if r.Interactions == nil {
		return models.InteractionHistory{}
	}
	return r.Interactions[itemID]
}

// BatchResult separates scored items from rejected candidates. One bad item
// never affects the score of another.
type BatchResult struct {
	Items    []models.ScoredItem
	Rejected []models.ItemError
}

// Scorer dispatches candidates to the job or post feed scorer.
type Scorer struct {
	cfg  Config
	feed *FeedScorer
	now  func() time.Time
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithClock overrides time.Now for requests that leave Now unset.
func WithClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) { s.now = now }
}

// NewScorer creates a scorer for the given configuration.
func NewScorer(cfg Config, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		cfg:  cfg,
		feed: NewFeedScorer(cfg),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the engine configuration.
func (s *Scorer) Config() Config { return s.cfg }

// MatchJob exposes the job match scorer.
func (s *Scorer) MatchJob(profile *models.Profile, job *models.Job, now time.Time) (JobMatch, models.ScoreBreakdown) {
	if now.IsZero() {
		now = s.now()
	}
	m := s.feed.match.Match(profile, job, now)
	return m, s.feed.match.Breakdown(m)
}

// Score validates and scores a single candidate.
func (s *Scorer) Score(req ScoreRequest, item models.CandidateItem) (models.ScoredItem, error) {
	if err := item.Validate(); err != nil {
		return models.ScoredItem{}, err
	}
	history := req.history(item.ID)
	if err := history.Validate(); err != nil {
		return models.ScoredItem{}, fmt.Errorf("item %s: %w", item.ID, err)
	}
	now := req.Now
	if now.IsZero() {
		now = s.now()
	}

	var breakdown models.ScoreBreakdown
	switch item.Type {
	case models.ItemTypeJob:
		breakdown = s.feed.ScoreJob(req.Profile, item.Job, history, now)
	case models.ItemTypePost:
		breakdown = s.feed.ScorePost(req.Profile, item.Post, history, req.Social, now)
	default:
		return models.ScoredItem{}, fmt.Errorf("item %s: %w", item.ID, models.ErrUnknownItemType)
	}

	payload := item
	return models.ScoredItem{
		ID:        item.ID,
		Type:      item.Type,
		Score:     breakdown.Total,
		AuthorID:  item.AuthorID(),
		Breakdown: &breakdown,
		Payload:   &payload,
	}, nil
}

// ScoreBatch scores candidates concurrently. Output keeps input order for
// accepted items; rejected items are reported individually. A cancelled
// context discards the partial result.
func (s *Scorer) ScoreBatch(ctx context.Context, req ScoreRequest, items []models.CandidateItem) (*BatchResult, error) {
	if req.Now.IsZero() {
		req.Now = s.now()
	}

	scored := make([]models.ScoredItem, len(items))
	errs := make([]error, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Concurrency, 1))
	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scored[i], errs[i] = s.Score(req, items[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &BatchResult{Items: make([]models.ScoredItem, 0, len(items))}
	for i := range items {
		if errs[i] != nil {
			result.Rejected = append(result.Rejected, models.ItemError{ItemID: items[i].ID, Error: errs[i].Error()})
			continue
		}
		result.Items = append(result.Items, scored[i])
	}
	return result, nil
}

// MergeAndSort merges scored lists and sorts them by descending score. Ties
// keep a deterministic (type, id) order.
func MergeAndSort(lists ...[]models.ScoredItem) []models.ScoredItem {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	merged := make([]models.ScoredItem, 0, n)
	for _, l := range lists {
		merged = append(merged, l...)
	}
	slices.SortStableFunc(merged, func(a, b models.ScoredItem) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return merged
}
