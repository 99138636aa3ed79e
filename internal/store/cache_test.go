package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"feed-ranking-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func scoredJob(id string, total float64) models.ScoredItem {
	return models.ScoredItem{
		ID:    id,
		Type:  models.ItemTypeJob,
		Score: total,
		Breakdown: &models.ScoreBreakdown{
			Total:      total,
			Components: map[string]float64{"skills": 80},
			Weights:    map[string]float64{"skills": 0.3},
		},
	}
}

type stubProfiles struct {
	calls   int
	profile *models.Profile
	err     error
}

func (s *stubProfiles) GetProfile(_ context.Context, _ string) (*models.Profile, error) {
	s.calls++
	return s.profile, s.err
}

// ==========================
// ScoreCache Tests
// ==========================

func TestScoreKey(t *testing.T) {
	assert.Equal(t, "feed:score:user-1:job:job-7", ScoreKey("user-1", models.ItemTypeJob, "job-7"))
}

func TestScoreCache_RoundTrip(t *testing.T) {
	mr, client := setupMiniRedis(t)
	cache := NewScoreCache(client, 5*time.Minute)
	ctx := context.Background()
	fingerprints := map[string]string{"job-1": "fp-1", "job-2": "fp-2", "job-3": "fp-3"}

	require.NoError(t, cache.SetMany(ctx, "user-1", []models.ScoredItem{scoredJob("job-1", 72), scoredJob("job-2", 40)}, fingerprints))

	candidates := []models.CandidateItem{
		models.NewJobCandidate("job-1", models.Job{}),
		models.NewJobCandidate("job-3", models.Job{}),
		models.NewPostCandidate("job-2", models.Post{}),
	}
	got, err := cache.GetMany(ctx, "user-1", candidates, fingerprints)
	require.NoError(t, err)

	assert.Len(t, got, 1, "type is part of the key")
	assert.Equal(t, 72.0, got["job-1"].Total)
	assert.Equal(t, 0.3, got["job-1"].Weights["skills"])

	assert.Equal(t, 5*time.Minute, mr.TTL(ScoreKey("user-1", models.ItemTypeJob, "job-1")))
	mr.FastForward(6 * time.Minute)
	got, err = cache.GetMany(ctx, "user-1", candidates, fingerprints)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScoreCache_FingerprintMismatchIsMiss(t *testing.T) {
	_, client := setupMiniRedis(t)
	cache := NewScoreCache(client, time.Minute)
	ctx := context.Background()
	candidates := []models.CandidateItem{models.NewJobCandidate("job-1", models.Job{})}

	require.NoError(t, cache.SetMany(ctx, "user-1", []models.ScoredItem{scoredJob("job-1", 72)}, map[string]string{"job-1": "old"}))

	tests := []struct {
		name         string
		fingerprints map[string]string
		wantHit      bool
	}{
		{"same inputs", map[string]string{"job-1": "old"}, true},
		{"changed inputs", map[string]string{"job-1": "new"}, false},
		{"no fingerprint", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cache.GetMany(ctx, "user-1", candidates, tt.fingerprints)
			require.NoError(t, err)
			_, ok := got["job-1"]
			assert.Equal(t, tt.wantHit, ok)
		})
	}
}

func TestFingerprinter(t *testing.T) {
	job := models.NewJobCandidate("job-1", models.Job{Title: "Backend Engineer", ViewsCount: 10})
	base := NewFingerprinter(&models.Profile{Skills: []string{"Go"}}).Item(job, models.InteractionHistory{}, false, "")

	assert.Equal(t, base, NewFingerprinter(&models.Profile{Skills: []string{"Go"}}).Item(job, models.InteractionHistory{}, false, ""))

	tests := []struct {
		name string
		got  string
	}{
		{"profile", NewFingerprinter(&models.Profile{Skills: []string{"Rust"}}).Item(job, models.InteractionHistory{}, false, "")},
		{"anonymous", NewFingerprinter(nil).Item(job, models.InteractionHistory{}, false, "")},
		{"payload", NewFingerprinter(&models.Profile{Skills: []string{"Go"}}).Item(
			models.NewJobCandidate("job-1", models.Job{Title: "Backend Engineer", ViewsCount: 11}), models.InteractionHistory{}, false, "")},
		{"history", NewFingerprinter(&models.Profile{Skills: []string{"Go"}}).Item(job, models.InteractionHistory{Saves: 1}, false, "")},
		{"follows", NewFingerprinter(&models.Profile{Skills: []string{"Go"}}).Item(job, models.InteractionHistory{}, true, "")},
		{"author location", NewFingerprinter(&models.Profile{Skills: []string{"Go"}}).Item(job, models.InteractionHistory{}, false, "Lisbon")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.got)
		})
	}
}

func TestScoreCache_Disabled(t *testing.T) {
	mr, client := setupMiniRedis(t)
	cache := NewScoreCache(client, 0)
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	require.NoError(t, cache.SetMany(ctx, "user-1", []models.ScoredItem{scoredJob("job-1", 72)}, nil))
	assert.Empty(t, mr.Keys())

	var nilCache *ScoreCache
	assert.False(t, nilCache.Enabled())
	got, err := nilCache.GetMany(ctx, "user-1", []models.CandidateItem{models.NewJobCandidate("job-1", models.Job{})}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScoreCache_CorruptEntryIsMiss(t *testing.T) {
	mr, client := setupMiniRedis(t)
	cache := NewScoreCache(client, time.Minute)
	require.NoError(t, mr.Set(ScoreKey("user-1", models.ItemTypeJob, "job-1"), "{not json"))

	got, err := cache.GetMany(context.Background(), "user-1", []models.CandidateItem{models.NewJobCandidate("job-1", models.Job{})}, map[string]string{"job-1": "fp"})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScoreCache_Unavailable(t *testing.T) {
	mr, client := setupMiniRedis(t)
	cache := NewScoreCache(client, time.Minute)
	mr.Close()

	_, err := cache.GetMany(context.Background(), "user-1", []models.CandidateItem{models.NewJobCandidate("job-1", models.Job{})}, nil)
	assert.Error(t, err)
	assert.Error(t, cache.SetMany(context.Background(), "user-1", []models.ScoredItem{scoredJob("job-1", 10)}, nil))
}

// ==========================
// CachedProfileStore Tests
// ==========================

func TestCachedProfileStore_ReadThrough(t *testing.T) {
	mr, client := setupMiniRedis(t)
	next := &stubProfiles{profile: &models.Profile{UserID: "user-1", Skills: []string{"Go"}}}
	store := NewCachedProfileStore(next, client, 10*time.Minute)
	ctx := context.Background()

	first, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	second, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)

	raw, err := mr.Get("feed:profile:user-1")
	require.NoError(t, err)
	var cached models.Profile
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, []string{"Go"}, cached.Skills)
}

func TestCachedProfileStore_NotFoundIsNotCached(t *testing.T) {
	mr, client := setupMiniRedis(t)
	next := &stubProfiles{err: ErrProfileNotFound}
	store := NewCachedProfileStore(next, client, time.Minute)

	_, err := store.GetProfile(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.False(t, mr.Exists("feed:profile:ghost"))
}

func TestCachedProfileStore_RedisDownFallsThrough(t *testing.T) {
	mr, client := setupMiniRedis(t)
	next := &stubProfiles{profile: &models.Profile{UserID: "user-1"}}
	store := NewCachedProfileStore(next, client, time.Minute)
	mr.Close()

	profile, err := store.GetProfile(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", profile.UserID)
}

func TestCachedProfileStore_StoreErrorPropagates(t *testing.T) {
	_, client := setupMiniRedis(t)
	boom := errors.New("db down")
	store := NewCachedProfileStore(&stubProfiles{err: boom}, client, time.Minute)

	_, err := store.GetProfile(context.Background(), "user-1")

	assert.ErrorIs(t, err, boom)
}
