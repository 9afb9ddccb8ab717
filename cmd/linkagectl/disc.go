package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/disc"
	"github.com/spf13/cobra"
)

func newDiscCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "disc", Short: "DISC questionnaire tools"}
	score := &cobra.Command{
		Use:   "score",
		Short: "Score a set of answers, given as id=value pairs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, _ := cmd.Flags().GetString("answers")
			answers, err := parseAnswers(raw)
			if err != nil {
				return err
			}
			res, err := disc.Score(answers)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	score.Flags().StringP("answers", "a", "", "comma separated answers, e.g. 1=5,2=3")
	_ = score.MarkFlagRequired("answers")
	cmd.AddCommand(score)
	return cmd
}

// parseAnswers reads "1=5,2=3" into a question id to value map.
func parseAnswers(raw string) (map[int]int, error) {
	out := map[int]int{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("answer %q: expected id=value", pair)
		}
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("answer %q: bad question id", pair)
		}
		val, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("answer %q: bad value", pair)
		}
		out[id] = val
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no answers given")
	}
	return out, nil
}
