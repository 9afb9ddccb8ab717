package main

import (
	"fmt"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/search"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/search/gemini"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type scoredVA struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "search", Short: "Relevance search tools"}
	score := &cobra.Command{
		Use:   "score",
		Short: "Rank the VA profiles in a JSON file against a query",
		RunE: func(cmd *cobra.Command, _ []string) error {
			query, _ := cmd.Flags().GetString("query")
			file, _ := cmd.Flags().GetString("file")
			useGemini, _ := cmd.Flags().GetBool("gemini")

			var vas []*models.VA
			if err := readJSONFile(file, &vas); err != nil {
				return err
			}
			for i, va := range vas {
				if va == nil {
					return fmt.Errorf("%s: entry %d is not a VA profile", file, i)
				}
			}

			var analyzer search.Analyzer
			if useGemini {
				key := viper.GetString("GEMINI_API_KEY")
				if key == "" {
					return fmt.Errorf("--gemini needs GEMINI_API_KEY")
				}
				gen, err := gemini.NewGenerator(cmd.Context(), key, viper.GetString("GEMINI_MODEL"))
				if err != nil {
					return err
				}
				analyzer = gemini.NewAnalyzer(gen, logger.L(), 500)
			}
			s := search.NewSearcher(analyzer)
			s.SetTimeout(30 * time.Second)
			results, mode := s.Search(cmd.Context(), query, vas)

			out := make([]scoredVA, 0, len(results))
			for _, r := range results {
				out = append(out, scoredVA{ID: r.VA.ID, Name: r.VA.Name, Score: r.Score})
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"mode": mode, "results": out})
		},
	}
	score.Flags().StringP("query", "q", "", "search query")
	score.Flags().StringP("file", "f", "", "JSON array of VA profiles, - for stdin")
	score.Flags().Bool("gemini", false, "analyze the query with Gemini")
	_ = score.MarkFlagRequired("file")
	_ = viper.BindEnv("GEMINI_API_KEY")
	_ = viper.BindEnv("GEMINI_MODEL")
	cmd.AddCommand(score)
	return cmd
}
