// Package search ranks VA profiles against a free-text recruiter query.
package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/metrics"
)

// Mode tells which scorer produced a result set.
type Mode string

const (
	ModeAI       Mode = "ai"
	ModeFallback Mode = "fallback"
	ModePlain    Mode = "plain"
)

// ErrNoAnalyzer is returned by analyzers that are not configured.
var ErrNoAnalyzer = errors.New("query analyzer not configured")

// Analyzer turns a query into an Analysis.
type Analyzer interface {
	Analyze(ctx context.Context, query string) (*Analysis, error)
}

// Result is one scored VA.
type Result struct {
	VA       *models.VA `json:"va"`
	Score    float64    `json:"score"`
	Analysis *Analysis  `json:"-"`
}

// Searcher scores candidates with the analyzer when available and falls back
// to literal occurrence counting otherwise.
type Searcher struct {
	analyzer Analyzer
	timeout  time.Duration
}

// NewSearcher accepts a nil analyzer; every search then uses the fallback scorer.
func NewSearcher(a Analyzer) *Searcher {
	return &Searcher{analyzer: a}
}

// SetTimeout bounds each analyzer call; zero leaves it to the caller's context.
func (s *Searcher) SetTimeout(d time.Duration) { s.timeout = d }

// Search ranks vas for query. Ties keep their input order.
func (s *Searcher) Search(ctx context.Context, query string, vas []*models.VA) ([]Result, Mode) {
	results := make([]Result, len(vas))
	for i, va := range vas {
		results[i] = Result{VA: va}
	}
	if strings.TrimSpace(query) == "" {
		metrics.SearchRequests.WithLabelValues(string(ModePlain)).Inc()
		return results, ModePlain
	}

	mode := ModeFallback
	var analysis *Analysis
	if s.analyzer != nil {
		actx, cancel := ctx, context.CancelFunc(func() {})
		if s.timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, s.timeout)
		}
		a, err := s.analyzer.Analyze(actx, query)
		cancel()
		switch {
		case err != nil:
			logger.Warnf("search: query analysis failed, using fallback scoring: %v", err)
		case a == nil:
			logger.Warnf("search: analyzer returned no analysis, using fallback scoring")
		default:
			analysis, mode = a, ModeAI
		}
	}

	for i := range results {
		if mode == ModeAI {
			results[i].Score = Score(results[i].VA, analysis, query)
			results[i].Analysis = analysis
		} else {
			results[i].Score = FallbackScore(results[i].VA, query)
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	metrics.SearchRequests.WithLabelValues(string(mode)).Inc()
	return results, mode
}
