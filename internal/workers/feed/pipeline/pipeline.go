// Package pipeline holds the steps shared by the feed workers: loading the
// viewer context, scoring candidates through the score cache and turning a
// scored list into a diversified page.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	ferrors "feed-ranking-workers/internal/common/errors"
	"feed-ranking-workers/internal/common/logger"
	"feed-ranking-workers/internal/common/metrics"
	"feed-ranking-workers/internal/common/observability"
	"feed-ranking-workers/internal/models"
	"feed-ranking-workers/internal/ranking"
	"feed-ranking-workers/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Deps are the optional input providers. A nil provider means the worker
// only scores what the job variables carry.
type Deps struct {
	Profiles     store.ProfileProvider
	Interactions store.InteractionProvider
	Social       store.SocialGraphProvider
	Cache        *store.ScoreCache
}

// Pipeline runs the load, score and finish steps for the feed workers.
type Pipeline struct {
	scorer *ranking.Scorer
	deps   Deps
	logger logger.Logger
}

// New creates a pipeline over scorer and the given providers.
func New(scorer *ranking.Scorer, deps Deps, log logger.Logger) *Pipeline {
	return &Pipeline{scorer: scorer, deps: deps, logger: log}
}

// Scorer returns the ranking engine.
func (p *Pipeline) Scorer() *ranking.Scorer { return p.scorer }

// LoadProfile returns the inline profile when present, otherwise the stored
// one. Without a user id, or for an unknown user when required is false, the
// viewer is anonymous and nil is returned.
func (p *Pipeline) LoadProfile(ctx context.Context, userID string, inline *models.Profile, required bool) (*models.Profile, error) {
	profile := inline
	if profile == nil && userID != "" && p.deps.Profiles != nil {
		stored, err := p.deps.Profiles.GetProfile(ctx, userID)
		switch {
		case errors.Is(err, store.ErrProfileNotFound):
			if required {
				return nil, ferrors.NewProfileNotFoundError(userID)
			}
			p.logger.Warn("profile not found, scoring as anonymous", map[string]interface{}{"userId": userID})
		case err != nil:
			return nil, ferrors.NewProfileLoadFailedError(userID, err)
		default:
			profile = stored
		}
	}
	if profile == nil && required {
		return nil, ferrors.NewProfileNotFoundError(userID)
	}

	if err := profile.Validate(); err != nil {
		p.logger.Warn("profile has malformed experience", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
	return profile, nil
}

// Overrides carry viewer context already present in the job variables.
type Overrides struct {
	Interactions map[string]models.InteractionHistory
	Social       *models.SocialGraph
}

// LoadContext builds the score request for a candidate set. Parts supplied
// through overrides skip the stores; the rest load concurrently.
func (p *Pipeline) LoadContext(ctx context.Context, userID string, profile *models.Profile, items []models.CandidateItem, o Overrides) (ranking.ScoreRequest, error) {
	req := ranking.ScoreRequest{
		Profile:      profile,
		Interactions: o.Interactions,
		Social:       o.Social,
	}
	if userID == "" {
		return req, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if req.Interactions == nil && p.deps.Interactions != nil {
		ids := itemIDs(items)
		g.Go(func() error {
			history, err := p.deps.Interactions.GetInteractions(gctx, userID, ids)
			if err != nil {
				return ferrors.NewInteractionsLoadFailedError(userID, err)
			}
			req.Interactions = history
			return nil
		})
	}
	if req.Social == nil && p.deps.Social != nil {
		authors := postAuthorIDs(items)
		g.Go(func() error {
			graph, err := p.deps.Social.GetSocialGraph(gctx, userID, authors)
			if err != nil {
				return ferrors.NewSocialGraphLoadFailedError(userID, err)
			}
			req.Social = graph
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ranking.ScoreRequest{}, err
	}
	return req, nil
}

// Score scores candidates, serving cached breakdowns first. Cache failures
// are logged and never fail the pass. Accepted items keep input order.
func (p *Pipeline) Score(ctx context.Context, taskType, userID string, req ranking.ScoreRequest, items []models.CandidateItem) (result *ranking.BatchResult, err error) {
	ctx, end := observability.StartSpan(ctx, taskType+".score",
		attribute.Int("candidates", len(items)),
	)
	defer func() { end(err) }()

	start := time.Now()
	fingerprints := p.fingerprints(userID, req, items)
	hits := p.cachedScores(ctx, userID, items, fingerprints)

	misses := make([]models.CandidateItem, 0, len(items))
	for _, item := range items {
		if hit, ok := hits[item.ID]; ok && hit.Type == item.Type && item.Validate() == nil {
			continue
		}
		misses = append(misses, item)
	}

	batch, err := p.scorer.ScoreBatch(ctx, req, misses)
	if err != nil {
		return nil, ferrors.NewRankingFailedError(err)
	}

	if userID != "" {
		if err := p.deps.Cache.SetMany(ctx, userID, batch.Items, fingerprints); err != nil {
			p.logger.Warn("score cache write failed", map[string]interface{}{
				"error": ferrors.NewScoreCacheFailedError(err).Details,
			})
		}
	}

	result = &ranking.BatchResult{
		Items:    inInputOrder(items, hits, batch.Items),
		Rejected: batch.Rejected,
	}
	p.recordScored(taskType, items, req, result)

	observability.SetAttributes(ctx,
		attribute.Int("scored", len(result.Items)),
		attribute.Int("rejected", len(result.Rejected)),
		attribute.Int("cacheHits", len(hits)),
	)
	metrics.FeedRankingDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
	return result, nil
}

// fingerprints hashes the inputs of every valid item so a cached breakdown
// is only reused for an identical profile, payload, history and follow state.
func (p *Pipeline) fingerprints(userID string, req ranking.ScoreRequest, items []models.CandidateItem) map[string]string {
	if userID == "" || !p.deps.Cache.Enabled() {
		return nil
	}

	fp := store.NewFingerprinter(req.Profile)
	out := make(map[string]string, len(items))
	for _, item := range items {
		if item.Validate() != nil {
			continue
		}
		var history models.InteractionHistory
		if req.Interactions != nil {
			history = req.Interactions[item.ID]
		}
		follows, authorLocation := false, ""
		if item.Post != nil {
			follows = req.Social.Follows(item.Post.AuthorID, item.Post.CompanyID)
			authorLocation = req.Social.AuthorLocation(item.Post.AuthorID)
		}
		out[item.ID] = fp.Item(item, history, follows, authorLocation)
	}
	return out
}

func (p *Pipeline) cachedScores(ctx context.Context, userID string, items []models.CandidateItem, fingerprints map[string]string) map[string]models.ScoredItem {
	hits := make(map[string]models.ScoredItem)
	if userID == "" || !p.deps.Cache.Enabled() {
		return hits
	}

	valid := make([]models.CandidateItem, 0, len(items))
	for _, item := range items {
		if item.Validate() == nil {
			valid = append(valid, item)
		}
	}

	cached, err := p.deps.Cache.GetMany(ctx, userID, valid, fingerprints)
	if err != nil {
		metrics.FeedScoreCacheRequests.WithLabelValues("error").Inc()
		p.logger.Warn("score cache read failed", map[string]interface{}{
			"error": ferrors.NewScoreCacheFailedError(err).Details,
		})
		return hits
	}

	for _, item := range valid {
		b, ok := cached[item.ID]
		if !ok {
			continue
		}
		payload := item
		hits[item.ID] = models.ScoredItem{
			ID:        item.ID,
			Type:      item.Type,
			Score:     b.Total,
			AuthorID:  item.AuthorID(),
			Breakdown: &b,
			Payload:   &payload,
		}
	}
	metrics.FeedScoreCacheRequests.WithLabelValues("hit").Add(float64(len(hits)))
	metrics.FeedScoreCacheRequests.WithLabelValues("miss").Add(float64(len(valid) - len(hits)))
	return hits
}

func (p *Pipeline) recordScored(taskType string, items []models.CandidateItem, req ranking.ScoreRequest, result *ranking.BatchResult) {
	for _, item := range result.Items {
		metrics.FeedItemsScored.WithLabelValues(string(item.Type)).Inc()
	}

	byID := make(map[string]models.CandidateItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	for _, rejected := range result.Rejected {
		item := byID[rejected.ItemID]
		itemType := string(item.Type)
		if itemType == "" {
			itemType = "unknown"
		}
		metrics.FeedItemsRejected.WithLabelValues(itemType, RejectionReason(item, req)).Inc()
		p.logger.Warn("candidate rejected", map[string]interface{}{
			"taskType": taskType,
			"itemId":   rejected.ItemID,
			"error":    rejected.Error,
		})
	}
}

// RejectionReason is the metric label for a rejected candidate.
func RejectionReason(item models.CandidateItem, req ranking.ScoreRequest) string {
	err := item.Validate()
	switch {
	case errors.Is(err, models.ErrMissingItemID):
		return "missing_id"
	case errors.Is(err, models.ErrMissingItemType):
		return "missing_type"
	case errors.Is(err, models.ErrUnknownItemType):
		return "unknown_type"
	case errors.Is(err, models.ErrMissingPayload):
		return "missing_payload"
	case errors.Is(err, models.ErrNegativeCounter):
		return "negative_counter"
	case err == nil && req.Interactions[item.ID].Validate() != nil:
		return "negative_interaction"
	default:
		return "invalid"
	}
}

// Page is a diversified feed page plus what the diversifier repaired.
type Page struct {
	Feed  models.FeedPage        `json:"feed"`
	Stats ranking.DiversityStats `json:"stats"`
}

// Finish merges scored lists, diversifies the whole ordering and slices the
// requested page. Diversification runs before pagination so page boundaries
// never reset the run limits.
func Finish(ctx context.Context, taskType string, cfg ranking.DiversityConfig, page, pageSize int, lists ...[]models.ScoredItem) (out Page, err error) {
	_, end := observability.StartSpan(ctx, taskType+".diversify")
	defer func() { end(err) }()

	merged := ranking.MergeAndSort(lists...)
	diversified, stats := ranking.NewDiversifier(cfg).Diversify(merged)
	if len(diversified) != len(merged) {
		return Page{}, ferrors.NewDiversificationFailedError(
			fmt.Sprintf("diversifier returned %d of %d items", len(diversified), len(merged)))
	}
	metrics.FeedDiversitySwaps.Add(float64(stats.Swaps))

	feed := ranking.Paginate(diversified, page, pageSize)
	feed.RankingID = uuid.NewString()
	return Page{Feed: feed, Stats: stats}, nil
}

// WithoutBreakdowns strips explanations from a page when the caller did not
// ask for them.
func WithoutBreakdowns(items []models.ScoredItem) []models.ScoredItem {
	out := make([]models.ScoredItem, len(items))
	for i, item := range items {
		item.Breakdown = nil
		out[i] = item
	}
	return out
}

func itemIDs(items []models.CandidateItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		ids = append(ids, item.ID)
	}
	return ids
}

func postAuthorIDs(items []models.CandidateItem) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, item := range items {
		if item.Type != models.ItemTypePost || item.Post == nil || item.Post.AuthorID == "" {
			continue
		}
		if _, ok := seen[item.Post.AuthorID]; ok {
			continue
		}
		seen[item.Post.AuthorID] = struct{}{}
		ids = append(ids, item.Post.AuthorID)
	}
	return ids
}

// inInputOrder interleaves cache hits with freshly scored items following
// the candidate order. Duplicate ids are matched first come, first served.
func inInputOrder(items []models.CandidateItem, hits map[string]models.ScoredItem, scored []models.ScoredItem) []models.ScoredItem {
	type key struct {
		itemType models.ItemType
		id       string
	}
	queue := make(map[key][]models.ScoredItem, len(scored))
	for _, s := range scored {
		k := key{s.Type, s.ID}
		queue[k] = append(queue[k], s)
	}

	out := make([]models.ScoredItem, 0, len(hits)+len(scored))
	for _, item := range items {
		k := key{item.Type, item.ID}
		if q := queue[k]; len(q) > 0 {
			out = append(out, q[0])
			queue[k] = q[1:]
			continue
		}
		if hit, ok := hits[item.ID]; ok && hit.Type == item.Type && item.Validate() == nil {
			out = append(out, hit)
		}
	}
	return out
}
