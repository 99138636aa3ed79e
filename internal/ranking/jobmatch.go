package ranking

import (
	"strings"
	"time"

	"feed-ranking-workers/internal/models"
)

// Sub-score names shared by breakdowns.
const (
	ComponentSkills               = "skills"
	ComponentLocation             = "location"
	ComponentLevel                = "level"
	ComponentSector               = "sector"
	ComponentInteractions         = "interactions"
	ComponentJobProximity         = "jobProximity"
	ComponentPopularity           = "popularity"
	ComponentRecency              = "recency"
	ComponentFollowedAuthor       = "followedAuthor"
	ComponentRelevance            = "relevance"
	ComponentEngagement           = "engagement"
	ComponentPreviousInteractions = "previousInteractions"
)

// Level is a seniority level; LevelUnknown scores 0.
type Level int

const (
	LevelUnknown Level = iota
	LevelJunior
	LevelMid
	LevelSenior
	LevelLead
	LevelExecutive
)

var levelAliases = map[string]Level{
	"junior":       LevelJunior,
	"júnior":       LevelJunior,
	"entry":        LevelJunior,
	"estagio":      LevelJunior,
	"estágio":      LevelJunior,
	"mid":          LevelMid,
	"pleno":        LevelMid,
	"intermediate": LevelMid,
	"senior":       LevelSenior,
	"sênior":       LevelSenior,
	"lead":         LevelLead,
	"principal":    LevelLead,
	"staff":        LevelLead,
	"executive":    LevelExecutive,
	"director":     LevelExecutive,
	"diretor":      LevelExecutive,
}

// ParseLevel maps a job level label, including localized aliases, to a Level.
func ParseLevel(s string) Level {
	return levelAliases[normalize(s)]
}

// LevelForYears derives the candidate level from total years of experience.
func LevelForYears(years float64) Level {
	switch {
	case years >= 5:
		return LevelSenior
	case years >= 2:
		return LevelMid
	default:
		return LevelJunior
	}
}

var techSectorKeywords = []string{
	"tech", "tecnologia", "technology", "software", "ti", "it",
	"desenvolvimento", "development", "programação", "programming",
}

// JobMatch is the candidate-to-job compatibility result.
type JobMatch struct {
	Total    float64 `json:"total"`
	Skills   float64 `json:"skills"`
	Location float64 `json:"location"`
	Level    float64 `json:"level"`
	Sector   float64 `json:"sector"`
}

// JobMatchScorer computes skills/location/level/sector compatibility.
type JobMatchScorer struct {
	weights JobMatchWeights
}

// NewJobMatchScorer creates a job match scorer with the given weights.
func NewJobMatchScorer(weights JobMatchWeights) *JobMatchScorer {
	return &JobMatchScorer{weights: weights}
}

// Match never fails: missing profile or job fields score 0.
func (s *JobMatchScorer) Match(profile *models.Profile, job *models.Job, now time.Time) JobMatch {
	if profile == nil || job == nil {
		return JobMatch{}
	}
	m := JobMatch{
		Skills:   SkillsScore(profile.Skills, job.Skills),
		Location: LocationScore(profile, job),
		Level:    LevelScore(profile, job.Level, now),
		Sector:   SectorScore(profile.Sector, job.Category),
	}
	m.Total = Clamp(m.Skills*s.weights.Skills +
		m.Location*s.weights.Location +
		m.Level*s.weights.Level +
		m.Sector*s.weights.Sector)
	return m
}

// Breakdown converts a match into a ScoreBreakdown.
func (s *JobMatchScorer) Breakdown(m JobMatch) models.ScoreBreakdown {
	return models.ScoreBreakdown{
		Total: m.Total,
		Components: map[string]float64{
			ComponentSkills:   m.Skills,
			ComponentLocation: m.Location,
			ComponentLevel:    m.Level,
			ComponentSector:   m.Sector,
		},
		Weights: map[string]float64{
			ComponentSkills:   s.weights.Skills,
			ComponentLocation: s.weights.Location,
			ComponentLevel:    s.weights.Level,
			ComponentSector:   s.weights.Sector,
		},
	}
}

// SkillsScore counts profile skills with a case-insensitive substring match
// in any job skill, over max(|profile|, |job|).
func SkillsScore(profileSkills, jobSkills []string) float64 {
	ps := normalizedNonEmpty(profileSkills)
	js := normalizedNonEmpty(jobSkills)
	if len(ps) == 0 || len(js) == 0 {
		return 0
	}
	matched := 0
	for _, p := range ps {
		for _, j := range js {
			if containsEither(p, j) {
				matched++
				break
			}
		}
	}
	return Ratio(matched, max(len(ps), len(js)))
}

// LocationScore prefers the remote/preferred-location path and falls back
// to the profile's own location when no preference is set.
func LocationScore(profile *models.Profile, job *models.Job) float64 {
	if profile == nil || job == nil {
		return 0
	}
	if strings.TrimSpace(profile.PreferredLocation) != "" {
		if job.Remote && wantsRemote(profile.PreferredLocation) {
			return 100
		}
		if anyTokenOverlap(locationTokens(profile.PreferredLocation), locationTokens(job.Location)) {
			return 80
		}
		return 0
	}

	pl, jl := normalize(profile.Location), normalize(job.Location)
	if pl == "" || jl == "" {
		return 0
	}
	if pl == jl {
		return 100
	}
	if anyTokenOverlap(locationTokens(pl), locationTokens(jl)) {
		return 60
	}
	return 0
}

// LevelScore compares the experience-derived level with the job level.
func LevelScore(profile *models.Profile, jobLevel string, now time.Time) float64 {
	if profile == nil || len(profile.Experience) == 0 {
		return 0
	}
	want := ParseLevel(jobLevel)
	if want == LevelUnknown {
		return 0
	}
	have := LevelForYears(profile.YearsOfExperience(now))

	distance := int(have) - int(want)
	if distance < 0 {
		distance = -distance
	}
	switch distance {
	case 0:
		return 100
	case 1:
		return 70
	case 2:
		return 40
	default:
		return 10
	}
}

// SectorScore is 100 for the same sector and partial for related ones.
func SectorScore(sector, category string) float64 {
	s, c := normalize(sector), normalize(category)
	if s == "" || c == "" {
		return 0
	}
	if s == c {
		return 100
	}
	if containsEither(s, c) {
		return 70
	}
	if hasTechKeyword(s) && hasTechKeyword(c) {
		return 50
	}
	return 0
}

func hasTechKeyword(s string) bool {
	tokens := keywordTokens(s, 0)
	for _, kw := range techSectorKeywords {
		if len([]rune(kw)) <= 2 {
			for _, t := range tokens {
				if t == kw {
					return true
				}
			}
			continue
		}
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func normalizedNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}
