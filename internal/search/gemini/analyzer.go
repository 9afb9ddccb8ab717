package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/search"
	"go.uber.org/zap"
)

const systemInstruction = "You are a recruitment expert specializing in matching search queries to virtual assistant profiles. Respond only with valid JSON."

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

var (
	validLevels    = map[string]bool{"junior": true, "mid": true, "senior": true, "principal": true, "c_level": true}
	validWorkTypes = map[string]bool{"contract": true, "full_time": true}
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Analyzer implements search.Analyzer on top of a Gemini generator.
type Analyzer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewAnalyzer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Analyzer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

func (a *Analyzer) Analyze(ctx context.Context, query string) (*search.Analysis, error) {
	if a == nil || a.generator == nil {
		return nil, search.ErrNoAnalyzer
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	prompt := buildPrompt(query)

	a.logger.Debug("gemini analyze request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("query", truncateForLog(query, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("gemini analyze response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", truncateForLog(raw, a.maxLogLen)),
	)

	return parseAnalysis(raw)
}

func buildPrompt(query string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Search Query: \"{{QUERY}}\"\n\nJSON Response:"
	}
	return strings.ReplaceAll(template, "{{QUERY}}", strings.ReplaceAll(query, `"`, `'`))
}

func parseAnalysis(raw string) (*search.Analysis, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}
	return &search.Analysis{
		Skills:            coerceList(data["skills"]),
		Industries:        coerceList(data["industries"]),
		ExperienceLevel:   coerceEnum(data["experienceLevel"], validLevels),
		WorkType:          coerceEnum(data["workType"], validWorkTypes),
		Tools:             coerceList(data["tools"]),
		PersonalityTraits: coerceList(data["personalityTraits"]),
		Keywords:          coerceList(data["keywords"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceList(v any) []string {
	var out []string
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func coerceEnum(v any, allowed map[string]bool) string {
	s, _ := v.(string)
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if allowed[s] {
		return s
	}
	return "any"
}

func truncateForLog(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
