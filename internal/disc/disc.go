// Package disc scores the 16-statement DISC personality questionnaire.
package disc

import (
	"fmt"
	"math"
	"time"
)

// DISC dimensions.
const (
	Dominance         = "D"
	Influence         = "I"
	Steadiness        = "S"
	Conscientiousness = "C"
)

// Likert answer bounds.
const (
	MinAnswer = 1
	MaxAnswer = 5
)

// Question is one questionnaire statement.
type Question struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// Questions is the fixed questionnaire, four statements per dimension.
var Questions = []Question{
	{ID: 1, Text: "I seldom toot my own horn", Type: Steadiness},
	{ID: 2, Text: "I make lots of noise", Type: Influence},
	{ID: 3, Text: "I am always on the look out for ways to make money", Type: Dominance},
	{ID: 4, Text: "I have a strong need for power", Type: Dominance},
	{ID: 5, Text: "I try to outdo others", Type: Dominance},
	{ID: 6, Text: "I read the fine print", Type: Conscientiousness},
	{ID: 7, Text: "I hesitate to criticize other people's ideas", Type: Steadiness},
	{ID: 8, Text: "I love order and regularity", Type: Conscientiousness},
	{ID: 9, Text: "I am emotionally reserved", Type: Conscientiousness},
	{ID: 10, Text: "I just want everyone to be equal", Type: Steadiness},
	{ID: 11, Text: "I joke around a lot", Type: Influence},
	{ID: 12, Text: "I enjoy being part of a loud crowd", Type: Influence},
	{ID: 13, Text: "I put people under pressure", Type: Dominance},
	{ID: 14, Text: "I want strangers to love me", Type: Influence},
	{ID: 15, Text: "My first reaction to an idea is to see its flaws", Type: Conscientiousness},
	{ID: 16, Text: "I value cooperation over competition", Type: Steadiness},
}

// tiePrecedence decides the primary type when scores are equal.
var tiePrecedence = []string{Influence, Steadiness, Conscientiousness, Dominance}

// ValidationError reports a malformed answer.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

// Result is a scored questionnaire.
type Result struct {
	Dominance         int       `json:"dominance"`
	Influence         int       `json:"influence"`
	Steadiness        int       `json:"steadiness"`
	Conscientiousness int       `json:"conscientiousness"`
	PrimaryType       string    `json:"primaryType"`
	Answered          int       `json:"answered"`
	CompletedAt       time.Time `json:"completedAt"`
}

// ByType returns the score of a dimension.
func (r *Result) ByType(t string) int {
	switch t {
	case Dominance:
		return r.Dominance
	case Influence:
		return r.Influence
	case Steadiness:
		return r.Steadiness
	case Conscientiousness:
		return r.Conscientiousness
	}
	return 0
}

func questionType(id int) (string, bool) {
	if id < 1 || id > len(Questions) {
		return "", false
	}
	return Questions[id-1].Type, true
}

// Score converts Likert answers keyed by question id into percentage scores.
// Unanswered statements are skipped; a dimension with no answers scores 0.
func Score(answers map[int]int) (*Result, error) {
	sums := map[string]int{}
	counts := map[string]int{}
	answered := 0
	for id, v := range answers {
		typ, ok := questionType(id)
		if !ok {
			return nil, &ValidationError{Field: fmt.Sprintf("answers.%d", id), Message: "unknown question"}
		}
		if v < MinAnswer || v > MaxAnswer {
			return nil, &ValidationError{Field: fmt.Sprintf("answers.%d", id), Message: fmt.Sprintf("answer must be between %d and %d", MinAnswer, MaxAnswer)}
		}
		sums[typ] += v
		counts[typ]++
		answered++
	}
	pct := func(t string) int {
		if counts[t] == 0 {
			return 0
		}
		return int(math.Round(float64(sums[t]) / float64(counts[t]*MaxAnswer) * 100))
	}
	r := &Result{
		Dominance:         pct(Dominance),
		Influence:         pct(Influence),
		Steadiness:        pct(Steadiness),
		Conscientiousness: pct(Conscientiousness),
		Answered:          answered,
		CompletedAt:       time.Now().UTC(),
	}
	r.PrimaryType = primary(r)
	return r, nil
}

func primary(r *Result) string {
	best := tiePrecedence[0]
	for _, t := range tiePrecedence[1:] {
		if r.ByType(t) > r.ByType(best) {
			best = t
		}
	}
	return best
}

// Description is the narrative shown for a primary type.
type Description struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Traits      []string `json:"traits"`
	Workplace   string   `json:"workplace"`
}

var descriptions = map[string]Description{
	Dominance: {
		Type:        Dominance,
		Title:       "Dominance",
		Description: "You are results-oriented, decisive, and direct. You enjoy challenges and taking charge.",
		Traits:      []string{"Direct", "Results-oriented", "Firm", "Strong-willed", "Forceful"},
		Workplace:   "In the workplace, you excel at driving results, making tough decisions, and leading change initiatives.",
	},
	Influence: {
		Type:        Influence,
		Title:       "Influence",
		Description: "You are enthusiastic, optimistic, and enjoy collaborating with others. You thrive in social situations.",
		Traits:      []string{"Enthusiastic", "Optimistic", "Warm", "Convincing", "Magnetic"},
		Workplace:   "In the workplace, you excel at building relationships, motivating teams, and creating positive environments.",
	},
	Steadiness: {
		Type:        Steadiness,
		Title:       "Steadiness",
		Description: "You are patient, loyal, and prefer stable environments. You value cooperation and helping others.",
		Traits:      []string{"Patient", "Loyal", "Predictable", "Team-oriented", "Calm"},
		Workplace:   "In the workplace, you excel at supporting others, maintaining harmony, and ensuring consistent quality.",
	},
	Conscientiousness: {
		Type:        Conscientiousness,
		Title:       "Conscientiousness",
		Description: "You are analytical, detail-oriented, and value accuracy. You prefer systematic approaches to problems.",
		Traits:      []string{"Precise", "Analytical", "Systematic", "Reserved", "Disciplined"},
		Workplace:   "In the workplace, you excel at quality control, data analysis, and developing efficient processes.",
	},
}

// Describe returns the narrative for a type, or false for unknown types.
func Describe(t string) (Description, bool) {
	d, ok := descriptions[t]
	return d, ok
}
