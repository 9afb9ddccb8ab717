package search

import (
	"strings"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
)

// Component weights of the relevance score. They add up to 100.
const (
	WeightDirect     = 20.0
	WeightSkills     = 25.0
	WeightIndustry   = 15.0
	WeightExperience = 15.0
	WeightWorkType   = 10.0
	WeightTools      = 10.0
	WeightKeywords   = 5.0

	MaxScore = 100.0
)

// Analysis is the structured reading of a free-text query.
type Analysis struct {
	Skills            []string `json:"skills"`
	Industries        []string `json:"industries"`
	ExperienceLevel   string   `json:"experienceLevel"`
	WorkType          string   `json:"workType"`
	Tools             []string `json:"tools"`
	PersonalityTraits []string `json:"personalityTraits"`
	Keywords          []string `json:"keywords"`
}

// acceptedLevels lists, per requested level, the VA role levels that satisfy it.
var acceptedLevels = map[string][]string{
	"junior":    {"junior"},
	"mid":       {"mid", "junior"},
	"senior":    {"senior", "mid", "principal", "c_level"},
	"principal": {"principal", "c_level"},
	"c_level":   {"c_level"},
}

var acceptedTypes = map[string][]string{
	"contract":  {"part_time_contract", "full_time_contract"},
	"full_time": {"full_time_employment", "full_time_contract"},
}

func anyIn(have, accepted []string) bool {
	for _, h := range have {
		for _, a := range accepted {
			if h == a {
				return true
			}
		}
	}
	return false
}

// ExperienceMatches reports whether a VA's role levels satisfy the requested level.
func ExperienceMatches(level models.RoleLevel, requested string) bool {
	return anyIn(level.Levels(), acceptedLevels[requested])
}

// WorkTypeMatches reports whether a VA's role types satisfy the requested work type.
func WorkTypeMatches(rt models.RoleType, requested string) bool {
	return anyIn(rt.Types(), acceptedTypes[requested])
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// fraction returns weight * matched/len(terms), capped at weight. Empty terms contribute 0.
func fraction(terms []string, weight float64, match func(string) bool) float64 {
	if len(terms) == 0 {
		return 0
	}
	n := 0
	for _, t := range terms {
		if match(t) {
			n++
		}
	}
	v := float64(n) / float64(len(terms)) * weight
	if v > weight {
		return weight
	}
	return v
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// Score computes the weighted relevance of va for an analysed query, in [0,100].
func Score(va *models.VA, a *Analysis, query string) float64 {
	if va == nil {
		return 0
	}
	if a == nil {
		a = &Analysis{}
	}
	text := SearchText(va)
	q := strings.ToLower(strings.TrimSpace(query))
	score := 0.0

	if q != "" && strings.Contains(text, q) {
		score += WeightDirect
	}

	vaSkills := lowerAll(va.Skills)
	score += fraction(lowerAll(a.Skills), WeightSkills, func(skill string) bool {
		if strings.Contains(text, skill) {
			return true
		}
		for _, s := range vaSkills {
			if strings.Contains(s, skill) || strings.Contains(skill, s) {
				return true
			}
		}
		return false
	})

	industry := strings.ToLower(va.Industry)
	score += fraction(lowerAll(a.Industries), WeightIndustry, func(i string) bool {
		return industry != "" && strings.Contains(industry, i)
	})

	if lvl := strings.ToLower(a.ExperienceLevel); lvl != "" && lvl != "any" && ExperienceMatches(va.RoleLevel, lvl) {
		score += WeightExperience
	}
	if wt := strings.ToLower(a.WorkType); wt != "" && wt != "any" && WorkTypeMatches(va.RoleType, wt) {
		score += WeightWorkType
	}

	inText := func(t string) bool { return strings.Contains(text, t) }
	score += fraction(lowerAll(a.Tools), WeightTools, inText)
	score += fraction(lowerAll(a.Keywords), WeightKeywords, inText)

	return clamp(score)
}

// FallbackScore counts literal, non-overlapping occurrences of the query in the
// VA's search text, 10 points each, capped at 100.
func FallbackScore(va *models.VA, query string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	return clamp(float64(strings.Count(SearchText(va), q)) * 10)
}
