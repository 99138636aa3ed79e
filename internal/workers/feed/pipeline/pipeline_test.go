package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	ferrors "feed-ranking-workers/internal/common/errors"
	"feed-ranking-workers/internal/common/logger"
	"feed-ranking-workers/internal/models"
	"feed-ranking-workers/internal/ranking"
	"feed-ranking-workers/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeProfiles struct {
	profile *models.Profile
	err     error
}

func (f *fakeProfiles) GetProfile(_ context.Context, _ string) (*models.Profile, error) {
	return f.profile, f.err
}

type fakeInteractions struct {
	history map[string]models.InteractionHistory
	err     error
	gotIDs  []string
}

func (f *fakeInteractions) GetInteractions(_ context.Context, _ string, ids []string) (map[string]models.InteractionHistory, error) {
	f.gotIDs = ids
	return f.history, f.err
}

type fakeSocial struct {
	graph      *models.SocialGraph
	err        error
	gotAuthors []string
}

func (f *fakeSocial) GetSocialGraph(_ context.Context, _ string, authors []string) (*models.SocialGraph, error) {
	f.gotAuthors = authors
	return f.graph, f.err
}

func newTestScorer() *ranking.Scorer {
	return ranking.NewScorer(ranking.DefaultConfig(), ranking.WithClock(func() time.Time { return testNow }))
}

func createTestCandidates() []models.CandidateItem {
	return []models.CandidateItem{
		models.NewJobCandidate("job-1", models.Job{
			Title:     "Backend Engineer",
			Skills:    []string{"Go", "PostgreSQL"},
			Location:  "Sao Paulo",
			Level:     "senior",
			Category:  "technology",
			CompanyID: "company-1",
			CreatedAt: testNow.Add(-48 * time.Hour),
		}),
		models.NewPostCandidate("post-1", models.Post{
			Content:        "Hiring Go engineers in Sao Paulo",
			AuthorID:       "author-1",
			CreatedAt:      testNow.Add(-2 * time.Hour),
			ReactionsCount: 40,
		}),
		{ID: "broken", Type: models.ItemTypeJob},
		models.NewPostCandidate("post-2", models.Post{AuthorID: "author-1", CreatedAt: testNow}),
	}
}

func newCache(t *testing.T) (*miniredis.Miniredis, *store.ScoreCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, store.NewScoreCache(client, time.Minute)
}

// ==========================
// LoadProfile Tests
// ==========================

func TestLoadProfile(t *testing.T) {
	stored := &models.Profile{UserID: "user-1", Skills: []string{"Go"}}
	inline := &models.Profile{Skills: []string{"Rust"}}

	tests := []struct {
		name     string
		profiles store.ProfileProvider
		userID   string
		inline   *models.Profile
		required bool
		want     *models.Profile
		wantCode ferrors.ErrorCode
	}{
		{name: "inline wins", profiles: &fakeProfiles{profile: stored}, userID: "user-1", inline: inline, want: inline},
		{name: "stored profile", profiles: &fakeProfiles{profile: stored}, userID: "user-1", want: stored},
		{name: "anonymous", profiles: &fakeProfiles{profile: stored}},
		{name: "not found is anonymous", profiles: &fakeProfiles{err: store.ErrProfileNotFound}, userID: "ghost"},
		{name: "not found when required", profiles: &fakeProfiles{err: store.ErrProfileNotFound}, userID: "ghost", required: true, wantCode: ferrors.ErrCodeProfileNotFound},
		{name: "store failure", profiles: &fakeProfiles{err: fmt.Errorf("connection reset")}, userID: "user-1", wantCode: ferrors.ErrCodeProfileLoadFailed},
		{name: "no store", userID: "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(newTestScorer(), Deps{Profiles: tt.profiles}, logger.NewTestLogger(t))

			got, err := p.LoadProfile(context.Background(), tt.userID, tt.inline, tt.required)

			if tt.wantCode != "" {
				stdErr, ok := ferrors.AsStandardError(err)
				require.True(t, ok, "expected StandardError, got %v", err)
				assert.Equal(t, tt.wantCode, stdErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}

// ==========================
// LoadContext Tests
// ==========================

func TestLoadContext(t *testing.T) {
	items := createTestCandidates()

	t.Run("loads interactions and social graph", func(t *testing.T) {
		interactions := &fakeInteractions{history: map[string]models.InteractionHistory{"job-1": {Views: 2}}}
		social := &fakeSocial{graph: &models.SocialGraph{FollowedAuthorIDs: []string{"author-1"}}}
		p := New(newTestScorer(), Deps{Interactions: interactions, Social: social}, logger.NewTestLogger(t))

		req, err := p.LoadContext(context.Background(), "user-1", nil, items, Overrides{})

		require.NoError(t, err)
		assert.Equal(t, 2, req.Interactions["job-1"].Views)
		assert.True(t, req.Social.Follows("author-1", ""))
		assert.Equal(t, []string{"job-1", "post-1", "broken", "post-2"}, interactions.gotIDs)
		assert.Equal(t, []string{"author-1"}, social.gotAuthors)
	})

	t.Run("overrides skip stores", func(t *testing.T) {
		interactions := &fakeInteractions{err: fmt.Errorf("must not be called")}
		social := &fakeSocial{err: fmt.Errorf("must not be called")}
		p := New(newTestScorer(), Deps{Interactions: interactions, Social: social}, logger.NewTestLogger(t))

		graph := &models.SocialGraph{FollowedCompanyIDs: []string{"company-1"}}
		req, err := p.LoadContext(context.Background(), "user-1", nil, items, Overrides{
			Interactions: map[string]models.InteractionHistory{},
			Social:       graph,
		})

		require.NoError(t, err)
		assert.Same(t, graph, req.Social)
		assert.Nil(t, interactions.gotIDs)
	})

	t.Run("anonymous viewer loads nothing", func(t *testing.T) {
		interactions := &fakeInteractions{err: fmt.Errorf("must not be called")}
		p := New(newTestScorer(), Deps{Interactions: interactions}, logger.NewTestLogger(t))

		req, err := p.LoadContext(context.Background(), "", nil, items, Overrides{})

		require.NoError(t, err)
		assert.Nil(t, req.Interactions)
	})

	t.Run("store failures map to error codes", func(t *testing.T) {
		p := New(newTestScorer(), Deps{
			Interactions: &fakeInteractions{err: fmt.Errorf("timeout")},
			Social:       &fakeSocial{graph: &models.SocialGraph{}},
		}, logger.NewTestLogger(t))

		_, err := p.LoadContext(context.Background(), "user-1", nil, items, Overrides{})

		stdErr, ok := ferrors.AsStandardError(err)
		require.True(t, ok)
		assert.Equal(t, ferrors.ErrCodeInteractionsLoadFailed, stdErr.Code)
		assert.True(t, stdErr.Retryable)
	})
}

// ==========================
// Score Tests
// ==========================

func TestScore_IsolatesBadCandidates(t *testing.T) {
	p := New(newTestScorer(), Deps{}, logger.NewTestLogger(t))
	req := ranking.ScoreRequest{Profile: &models.Profile{Skills: []string{"Go"}}, Now: testNow}

	result, err := p.Score(context.Background(), "score-feed-items", "", req, createTestCandidates())

	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.Equal(t, "job-1", result.Items[0].ID)
	assert.Equal(t, "post-1", result.Items[1].ID)
	assert.Equal(t, "post-2", result.Items[2].ID)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "broken", result.Rejected[0].ItemID)
}

func TestScore_UsesScoreCache(t *testing.T) {
	mr, cache := newCache(t)
	p := New(newTestScorer(), Deps{Cache: cache}, logger.NewTestLogger(t))
	req := ranking.ScoreRequest{Profile: &models.Profile{Skills: []string{"Go"}}, Now: testNow}
	ctx := context.Background()
	candidates := createTestCandidates()

	first, err := p.Score(ctx, "rank-feed", "user-1", req, candidates)
	require.NoError(t, err)
	assert.True(t, mr.Exists(store.ScoreKey("user-1", models.ItemTypeJob, "job-1")))
	assert.False(t, mr.Exists(store.ScoreKey("user-1", models.ItemTypeJob, "broken")))

	// A seeded breakdown under the same fingerprint proves the second pass
	// reads from the cache.
	seeded := models.ScoredItem{
		ID:        "job-1",
		Type:      models.ItemTypeJob,
		Breakdown: &models.ScoreBreakdown{Total: 12, Components: map[string]float64{"skills": 12}},
	}
	require.NoError(t, cache.SetMany(ctx, "user-1", []models.ScoredItem{seeded}, p.fingerprints("user-1", req, candidates)))

	second, err := p.Score(ctx, "rank-feed", "user-1", req, candidates)
	require.NoError(t, err)
	require.Len(t, second.Items, len(first.Items))
	assert.Equal(t, "job-1", second.Items[0].ID)
	assert.Equal(t, 12.0, second.Items[0].Score)
	assert.Equal(t, "company-1", second.Items[0].AuthorID)
	require.NotNil(t, second.Items[0].Payload)
	assert.Equal(t, first.Items[1].Score, second.Items[1].Score)
	assert.Len(t, second.Rejected, 1)
}

func TestScore_CacheRescoresChangedInputs(t *testing.T) {
	matching := &models.Profile{
		Skills:   []string{"Go", "PostgreSQL"},
		Location: "Sao Paulo",
		Sector:   "technology",
	}
	history := map[string]models.InteractionHistory{"job-1": {Applies: 1, Saves: 1}}

	tests := []struct {
		name   string
		first  ranking.ScoreRequest
		second ranking.ScoreRequest
		items  func() []models.CandidateItem
	}{
		{
			name:   "inline profile and history",
			first:  ranking.ScoreRequest{Profile: &models.Profile{}, Now: testNow},
			second: ranking.ScoreRequest{Profile: matching, Interactions: history, Now: testNow},
		},
		{
			name:   "interaction history only",
			first:  ranking.ScoreRequest{Profile: matching, Now: testNow},
			second: ranking.ScoreRequest{Profile: matching, Interactions: history, Now: testNow},
		},
		{
			name:   "followed author",
			first:  ranking.ScoreRequest{Profile: matching, Now: testNow},
			second: ranking.ScoreRequest{Profile: matching, Social: &models.SocialGraph{FollowedAuthorIDs: []string{"author-1"}}, Now: testNow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cache := newCache(t)
			ctx := context.Background()
			cached := New(newTestScorer(), Deps{Cache: cache}, logger.NewTestLogger(t))
			fresh := New(newTestScorer(), Deps{}, logger.NewTestLogger(t))

			first, err := cached.Score(ctx, "score-feed-items", "user-1", tt.first, createTestCandidates())
			require.NoError(t, err)
			second, err := cached.Score(ctx, "score-feed-items", "user-1", tt.second, createTestCandidates())
			require.NoError(t, err)
			want, err := fresh.Score(ctx, "score-feed-items", "user-1", tt.second, createTestCandidates())
			require.NoError(t, err)

			require.Len(t, second.Items, len(want.Items))
			for i := range want.Items {
				assert.Equal(t, want.Items[i].Score, second.Items[i].Score, want.Items[i].ID)
				assert.Equal(t, want.Items[i].Breakdown, second.Items[i].Breakdown, want.Items[i].ID)
			}
			assert.NotEqual(t, first.Items, second.Items)
		})
	}
}

func TestScore_CacheRescoresChangedPayload(t *testing.T) {
	_, cache := newCache(t)
	ctx := context.Background()
	p := New(newTestScorer(), Deps{Cache: cache}, logger.NewTestLogger(t))
	req := ranking.ScoreRequest{Profile: &models.Profile{Skills: []string{"Go"}}, Now: testNow}

	stale := []models.CandidateItem{models.NewPostCandidate("post-1", models.Post{AuthorID: "author-1", CreatedAt: testNow.Add(-300 * time.Hour)})}
	updated := []models.CandidateItem{models.NewPostCandidate("post-1", models.Post{AuthorID: "author-1", CreatedAt: testNow, ReactionsCount: 200})}

	first, err := p.Score(ctx, "score-feed-items", "user-1", req, stale)
	require.NoError(t, err)
	second, err := p.Score(ctx, "score-feed-items", "user-1", req, updated)
	require.NoError(t, err)

	require.Len(t, second.Items, 1)
	assert.Greater(t, second.Items[0].Score, first.Items[0].Score)
	assert.Equal(t, testNow, second.Items[0].Payload.Post.CreatedAt)
}

func TestScore_CacheDownStillScores(t *testing.T) {
	mr, cache := newCache(t)
	mr.Close()
	p := New(newTestScorer(), Deps{Cache: cache}, logger.NewTestLogger(t))

	result, err := p.Score(context.Background(), "rank-feed", "user-1", ranking.ScoreRequest{Now: testNow}, createTestCandidates())

	require.NoError(t, err)
	assert.Len(t, result.Items, 3)
}

func TestScore_CancelledContext(t *testing.T) {
	p := New(newTestScorer(), Deps{}, logger.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Score(ctx, "rank-feed", "", ranking.ScoreRequest{Now: testNow}, createTestCandidates())

	stdErr, ok := ferrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.ErrCodeRankingFailed, stdErr.Code)
}

func TestRejectionReason(t *testing.T) {
	req := ranking.ScoreRequest{Interactions: map[string]models.InteractionHistory{"job-1": {Saves: -1}}}

	tests := []struct {
		item models.CandidateItem
		want string
	}{
		{models.CandidateItem{Type: models.ItemTypeJob, Job: &models.Job{}}, "missing_id"},
		{models.CandidateItem{ID: "x"}, "missing_type"},
		{models.CandidateItem{ID: "x", Type: "event"}, "unknown_type"},
		{models.CandidateItem{ID: "x", Type: models.ItemTypePost}, "missing_payload"},
		{models.NewJobCandidate("x", models.Job{ViewsCount: -4}), "negative_counter"},
		{models.NewJobCandidate("job-1", models.Job{}), "negative_interaction"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RejectionReason(tt.item, req))
	}
}

// ==========================
// Finish Tests
// ==========================

func scored(id string, itemType models.ItemType, score float64, author string) models.ScoredItem {
	return models.ScoredItem{ID: id, Type: itemType, Score: score, AuthorID: author}
}

func TestFinish(t *testing.T) {
	jobs := []models.ScoredItem{
		scored("job-1", models.ItemTypeJob, 90, "company-1"),
		scored("job-2", models.ItemTypeJob, 85, "company-2"),
		scored("job-3", models.ItemTypeJob, 80, "company-3"),
		scored("job-4", models.ItemTypeJob, 75, "company-4"),
	}
	posts := []models.ScoredItem{
		scored("post-1", models.ItemTypePost, 72, "author-1"),
		scored("post-2", models.ItemTypePost, 30, "author-2"),
	}

	out, err := Finish(context.Background(), "rank-feed", ranking.DefaultConfig().Diversity, 1, 4, jobs, posts)

	require.NoError(t, err)
	assert.NotEmpty(t, out.Feed.RankingID)
	assert.Equal(t, 6, out.Feed.Total)
	assert.Equal(t, 4, out.Feed.PageSize)
	assert.True(t, out.Feed.HasMore)
	require.Len(t, out.Feed.Items, 4)
	assert.Equal(t, "job-1", out.Feed.Items[0].ID)

	for i := 3; i < len(out.Feed.Items); i++ {
		window := out.Feed.Items[i-3 : i+1]
		sameType := window[0].Type == window[1].Type && window[1].Type == window[2].Type && window[2].Type == window[3].Type
		assert.False(t, sameType, "four consecutive items of one type")
	}
}

func TestFinish_EmptyInput(t *testing.T) {
	out, err := Finish(context.Background(), "diversify-feed", ranking.DefaultConfig().Diversity, 1, 20)

	require.NoError(t, err)
	assert.Empty(t, out.Feed.Items)
	assert.Zero(t, out.Feed.Total)
	assert.False(t, out.Feed.HasMore)
	assert.Zero(t, out.Stats.Swaps)
}

func TestWithoutBreakdowns(t *testing.T) {
	items := []models.ScoredItem{{ID: "a", Breakdown: &models.ScoreBreakdown{Total: 1}}}

	stripped := WithoutBreakdowns(items)

	assert.Nil(t, stripped[0].Breakdown)
	assert.NotNil(t, items[0].Breakdown)
}
