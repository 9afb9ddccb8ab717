package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	analysis *Analysis
	err      error
	calls    int
}

func (s *stubAnalyzer) Analyze(ctx context.Context, query string) (*Analysis, error) {
	s.calls++
	return s.analysis, s.err
}

func candidates() []*models.VA {
	return []*models.VA{
		{ID: "a", Name: "Ana", Bio: "bookkeeping"},
		{ID: "b", Name: "Ben", Skills: []string{"Shopify"}, Bio: "shopify shopify"},
		{ID: "c", Name: "Cy", Skills: []string{"Shopify"}},
		{ID: "d", Name: "Di"},
	}
}

func ids(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.VA.ID
	}
	return out
}

func TestSearch_EmptyQueryKeepsOrder(t *testing.T) {
	an := &stubAnalyzer{}
	rs, mode := NewSearcher(an).Search(context.Background(), "  ", candidates())
	require.Equal(t, ModePlain, mode)
	require.Equal(t, []string{"a", "b", "c", "d"}, ids(rs))
	require.Zero(t, an.calls)
	for _, r := range rs {
		require.Zero(t, r.Score)
	}
}

func TestSearch_AIMode(t *testing.T) {
	an := &stubAnalyzer{analysis: &Analysis{Skills: []string{"shopify"}}}
	rs, mode := NewSearcher(an).Search(context.Background(), "shopify expert", candidates())
	require.Equal(t, ModeAI, mode)
	require.Equal(t, 1, an.calls)
	// b and c tie on skills; stable order keeps b first
	require.Equal(t, []string{"b", "c", "a", "d"}, ids(rs))
	require.Equal(t, WeightSkills, rs[0].Score)
	for _, r := range rs {
		require.GreaterOrEqual(t, r.Score, 0.0)
		require.LessOrEqual(t, r.Score, MaxScore)
	}
}

func TestSearch_FallbackOnAnalyzerError(t *testing.T) {
	an := &stubAnalyzer{err: errors.New("quota exceeded")}
	rs, mode := NewSearcher(an).Search(context.Background(), "shopify", candidates())
	require.Equal(t, ModeFallback, mode)
	require.Equal(t, []string{"b", "c", "a", "d"}, ids(rs))
	require.Equal(t, 30.0, rs[0].Score)
	require.Equal(t, 10.0, rs[1].Score)
}

func TestSearch_NilAnalyzerUsesFallback(t *testing.T) {
	rs, mode := NewSearcher(nil).Search(context.Background(), "bookkeeping", candidates())
	require.Equal(t, ModeFallback, mode)
	require.Equal(t, "a", rs[0].VA.ID)
}

type slowAnalyzer struct{}

func (slowAnalyzer) Analyze(ctx context.Context, query string) (*Analysis, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSearch_TimeoutFallsBack(t *testing.T) {
	s := NewSearcher(slowAnalyzer{})
	s.SetTimeout(20 * time.Millisecond)
	rs, mode := s.Search(context.Background(), "shopify", candidates())
	require.Equal(t, ModeFallback, mode)
	require.Equal(t, "b", rs[0].VA.ID)
}
