package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/serverless-workshop/internal/inputs"
	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// NewBatchCommand creates the "batch" cobra command.
func NewBatchCommand() *cobra.Command {
	flags := &endpointFlags{}

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Analyze every text in a file",
		Long: `Analyze every text listed in a file.

Supported formats:
  .yaml/.yml   a list of strings, or a mapping with a "texts" list
  .json/.jsonc the same shapes; comments and trailing commas are allowed
  anything else one text per line; blank lines and # comments are skipped

Examples:
  workshop batch reviews.txt
  workshop batch reviews.yaml --endpoint http://127.0.0.1:8000 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			texts, err := inputs.LoadTexts(args[0])
			if err != nil {
				return model.WrapCLIError(model.ExitInvalidInput, "cannot read "+args[0], err)
			}
			VerboseLog("loaded %d texts from %s", len(texts), args[0])

			c := currentConfig()
			a := newAnalyzer(c, flags.resolve(c), true)
			return runBatch(cmd.Context(), cmd.OutOrStdout(), a, texts)
		},
	}
	flags.register(cmd)

	return cmd
}

func runBatch(ctx context.Context, w io.Writer, a analyzer, texts []string) error {
	results, err := a.AnalyzeBatch(ctx, texts)
	if err != nil {
		return err
	}
	printResults(w, texts, results)

	if !IsJSONOutput() {
		fmt.Fprintln(w, mutedStyle.Render(FormatSummary(results)))
	}
	return nil
}

// FormatSummary counts results per label, e.g.
// "4 texts: 2 Positive, 1 Negative, 1 Neutral".
func FormatSummary(results []model.Result) string {
	counts := map[string]int{}
	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
			continue
		}
		counts[r.Label]++
	}

	s := fmt.Sprintf("%d texts", len(results))
	sep := ": "
	for _, label := range []string{model.LabelPositive, model.LabelNegative, model.LabelNeutral} {
		if n := counts[label]; n > 0 {
			s += fmt.Sprintf("%s%d %s", sep, n, label)
			sep = ", "
		}
		delete(counts, label)
	}
	other := 0
	for _, n := range counts {
		other += n
	}
	if other > 0 {
		s += fmt.Sprintf("%s%d other", sep, other)
		sep = ", "
	}
	if failed > 0 {
		s += fmt.Sprintf("%s%d failed", sep, failed)
	}
	return s
}
