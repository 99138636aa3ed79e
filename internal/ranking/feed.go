package ranking

import (
	"math"
	"strings"
	"time"

	"feed-ranking-workers/internal/models"
)

// importantRoleKeywords earn a proximity bonus when they appear in the job
// title or description.
var importantRoleKeywords = map[string]struct{}{
	"desenvolvedor": {}, "developer": {},
	"engenheiro": {}, "engineer": {},
	"analista": {}, "analyst": {},
	"gerente": {}, "manager": {},
	"especialista": {}, "specialist": {},
}

const (
	interactionCap      = 20.0
	headlineMinRunes    = 3
	proximityBonus      = 20.0
	proximityFallbackAt = 50.0
)

// FeedScorer blends profile match, behaviour, freshness, popularity and
// social signals into one relevance score per candidate.
type FeedScorer struct {
	cfg   Config
	match *JobMatchScorer
}

// NewFeedScorer creates a feed scorer for jobs and posts.
func NewFeedScorer(cfg Config) *FeedScorer {
	return &FeedScorer{cfg: cfg, match: NewJobMatchScorer(cfg.JobMatch)}
}

// ScoreJob scores a job for the viewer. history may be the zero value.
func (s *FeedScorer) ScoreJob(profile *models.Profile, job *models.Job, history models.InteractionHistory, now time.Time) models.ScoreBreakdown {
	w := s.cfg.JobFeed
	if job == nil {
		return emptyBreakdown(jobWeights(w))
	}
	match := s.match.Match(profile, job, now)

	components := map[string]float64{
		ComponentSkills:       match.Total,
		ComponentInteractions: JobInteractionScore(history),
		ComponentJobProximity: JobProximityScore(profile, job),
		ComponentLocation:     JobLocationScore(profile, job, match.Location),
		ComponentPopularity:   JobPopularityScore(job.ViewsCount, job.ApplicationsCount),
		ComponentRecency:      recencyScore(job.CreatedAt, now, s.cfg.JobDecayWindow),
	}
	return weigh(components, jobWeights(w))
}

// ScorePost scores a post for the viewer.
func (s *FeedScorer) ScorePost(profile *models.Profile, post *models.Post, history models.InteractionHistory, graph *models.SocialGraph, now time.Time) models.ScoreBreakdown {
	w := s.cfg.PostFeed
	if post == nil {
		return emptyBreakdown(postWeights(w))
	}

	followed := 0.0
	if graph.Follows(post.AuthorID, post.CompanyID) {
		followed = 100
	}
	authorLocation := post.AuthorLocation
	if authorLocation == "" {
		authorLocation = graph.AuthorLocation(post.AuthorID)
	}

	components := map[string]float64{
		ComponentFollowedAuthor:       followed,
		ComponentRelevance:            PostRelevanceScore(profile, post.Content, authorLocation),
		ComponentEngagement:           PostEngagementScore(post.ReactionsCount, post.CommentsCount, post.SharesCount),
		ComponentPreviousInteractions: PreviousInteractionScore(history),
		ComponentRecency:              recencyScore(post.CreatedAt, now, s.cfg.PostDecayWindow),
		ComponentPopularity:           PostPopularityScore(post.ReactionsCount, post.CommentsCount, post.SharesCount),
	}
	return weigh(components, postWeights(w))
}

// JobInteractionScore is capped at 20 before weighting.
func JobInteractionScore(h models.InteractionHistory) float64 {
	raw := BoundedLinear(float64(h.Views), 5, 15)
	if h.Saves > 0 {
		raw += 15
	}
	if h.Applies > 0 {
		raw += 20
	}
	if h.CompanyViews > 0 {
		raw += 10
	}
	if h.TotalDurationSeconds > 0 {
		raw += math.Min(math.Floor(float64(h.TotalDurationSeconds)/10), 10)
	}
	return math.Min(raw, interactionCap)
}

// JobProximityScore compares the viewer's headline with the job text and
// falls back to the current experience title when the headline is weak.
func JobProximityScore(profile *models.Profile, job *models.Job) float64 {
	if profile == nil || job == nil {
		return 0
	}
	title := normalize(job.Title)
	description := normalize(job.Description)
	category := normalize(job.Category)
	jobText := strings.Join([]string{title, description, category}, " ")

	score := 0.0
	tokens := keywordTokens(profile.Headline, headlineMinRunes)
	if len(tokens) > 0 {
		matched := 0
		bonus := false
		for _, t := range tokens {
			if !strings.Contains(jobText, t) {
				continue
			}
			matched++
			if _, important := importantRoleKeywords[t]; important &&
				(strings.Contains(title, t) || strings.Contains(description, t)) {
				bonus = true
			}
		}
		score = Ratio(matched, len(tokens))
		if bonus {
			score = Clamp(score + proximityBonus)
		}
	}

	if score < proximityFallbackAt {
		score = math.Max(score, titleFallbackScore(normalize(profile.CurrentTitle()), title, category))
	}
	return score
}

func titleFallbackScore(current, jobTitle, category string) float64 {
	switch {
	case current == "":
		return 0
	case current == jobTitle:
		return 100
	case containsEither(current, jobTitle):
		return 80
	case containsEither(current, category):
		return 60
	default:
		return 0
	}
}

// JobLocationScore upgrades the match location sub-score on exact, token
// and remote matches. It never lowers the base.
func JobLocationScore(profile *models.Profile, job *models.Job, base float64) float64 {
	if profile == nil || job == nil {
		return Clamp(base)
	}
	score := base
	pl, jl := normalize(profile.Location), normalize(job.Location)
	if pl != "" && pl == jl {
		score = 100
	}
	if anyTokenOverlap(locationTokens(pl), locationTokens(jl)) {
		score = math.Max(score, 80)
	}
	if job.Remote && wantsRemote(profile.PreferredLocation) {
		score = math.Max(score, 90)
	}
	return Clamp(score)
}

// JobPopularityScore rewards views and applications, each capped at 50.
func JobPopularityScore(views, applications int) float64 {
	return Clamp(BoundedLinear(float64(views), 0.5, 50) + BoundedLinear(float64(applications), 1, 50))
}

// PostRelevanceScore awards 50 points when a word of the viewer's location
// appears in the content or the author's location, plus up to 50 for the
// share of headline keywords found in the content.
func PostRelevanceScore(profile *models.Profile, content, authorLocation string) float64 {
	if profile == nil {
		return 0
	}
	text := normalize(content)
	words := tokenSet(keywordTokens(text, 0), keywordTokens(authorLocation, 0))

	score := 0.0
	for _, t := range keywordTokens(profile.Location, 1) {
		if _, ok := words[t]; ok {
			score += 50
			break
		}
	}

	tokens := keywordTokens(profile.Headline, headlineMinRunes)
	if len(tokens) > 0 && text != "" {
		found := 0
		for _, t := range tokens {
			if strings.Contains(text, t) {
				found++
			}
		}
		score += float64(found) / float64(len(tokens)) * 50
	}
	return Clamp(score)
}

// PostEngagementScore blends reactions, comments and shares up to 100.
func PostEngagementScore(reactions, comments, shares int) float64 {
	return Clamp(BoundedLinear(float64(reactions), 0.5, 50) +
		BoundedLinear(float64(comments), 0.6, 30) +
		BoundedLinear(float64(shares), 1, 20))
}

// PreviousInteractionScore scores the viewer's likes, comments and shares on a post.
func PreviousInteractionScore(h models.InteractionHistory) float64 {
	score := 0.0
	if h.Liked {
		score += 50
	}
	if h.Commented {
		score += 30
	}
	if h.Shared {
		score += 20
	}
	return Clamp(score)
}

// PostPopularityScore reaches 100 at 200 total reactions, comments and shares.
func PostPopularityScore(reactions, comments, shares int) float64 {
	total := max(reactions, 0) + max(comments, 0) + max(shares, 0)
	return Clamp(float64(total) / 200 * 100)
}

// recencyScore treats a missing creation time as a missing field.
func recencyScore(createdAt, now time.Time, window time.Duration) float64 {
	if createdAt.IsZero() {
		return 0
	}
	return TimeDecay(now.Sub(createdAt), window)
}

func jobWeights(w JobFeedWeights) map[string]float64 {
	return map[string]float64{
		ComponentSkills:       w.Skills,
		ComponentInteractions: w.Interactions,
		ComponentJobProximity: w.JobProximity,
		ComponentLocation:     w.Location,
		ComponentPopularity:   w.Popularity,
		ComponentRecency:      w.Recency,
	}
}

func postWeights(w PostFeedWeights) map[string]float64 {
	return map[string]float64{
		ComponentFollowedAuthor:       w.FollowedAuthor,
		ComponentRelevance:            w.Relevance,
		ComponentEngagement:           w.Engagement,
		ComponentPreviousInteractions: w.PreviousInteractions,
		ComponentRecency:              w.Recency,
		ComponentPopularity:           w.Popularity,
	}
}

func weigh(components, weights map[string]float64) models.ScoreBreakdown {
	sum := 0.0
	for name, v := range components {
		v = Clamp(v)
		components[name] = v
		sum += v * weights[name]
	}
	return models.ScoreBreakdown{
		Total:      RoundScore(sum),
		Components: components,
		Weights:    weights,
	}
}

func emptyBreakdown(weights map[string]float64) models.ScoreBreakdown {
	components := make(map[string]float64, len(weights))
	for name := range weights {
		components[name] = 0
	}
	return models.ScoreBreakdown{Total: 0, Components: components, Weights: weights}
}
