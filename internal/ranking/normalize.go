// Package ranking scores job and post candidates against a viewer profile and
// re-orders the scored feed under diversity constraints.
//
// Every function in this package is pure: no I/O, no shared mutable state.
// All sub-scores and totals are bounded to [0, 100].
package ranking

import (
	"math"
	"strings"
	"time"
	"unicode"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Clamp bounds v to [0, 100]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(v, MaxScore))
}

// BoundedLinear converts a raw counter into min(value*pointsPerUnit, cap).
// Negative input is treated as zero.
func BoundedLinear(value, pointsPerUnit, limit float64) float64 {
	if value <= 0 || pointsPerUnit <= 0 {
		return 0
	}
	return math.Min(value*pointsPerUnit, limit)
}

// TimeDecay decays linearly from 100 at zero elapsed time to 0 at window.
// Items from the future score 100.
func TimeDecay(elapsed, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}
	if elapsed <= 0 {
		return MaxScore
	}
	return math.Max(0, MaxScore-(float64(elapsed)/float64(window))*MaxScore)
}

// Ratio returns part/whole*100 clamped, or 0 for an empty whole.
func Ratio(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return Clamp(float64(part) / float64(whole) * MaxScore)
}

// RoundScore rounds half away from zero, matching how totals are reported.
func RoundScore(v float64) float64 {
	return Clamp(math.Round(v))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// locationTokens splits a location string on commas and whitespace.
func locationTokens(s string) []string {
	return strings.FieldsFunc(normalize(s), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// keywordTokens returns the lower-cased words of s longer than minLen runes,
// with surrounding punctuation stripped. Duplicates are kept once.
func keywordTokens(s string, minLen int) []string {
	words := strings.FieldsFunc(normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) <= minLen {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func anyTokenOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := tokenSet(b)
	for _, t := range a {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

func tokenSet(groups ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, g := range groups {
		for _, t := range g {
			set[t] = struct{}{}
		}
	}
	return set
}

// containsEither reports substring containment in either direction. Empty
// strings never match.
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func wantsRemote(preferred string) bool {
	p := normalize(preferred)
	return strings.Contains(p, "remoto") || strings.Contains(p, "remote")
}
