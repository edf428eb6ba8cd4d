package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/serverless-workshop/internal/config"
	"github.com/shinji-kodama/serverless-workshop/internal/model"
	"github.com/shinji-kodama/serverless-workshop/internal/sentiment"
)

// SampleTexts are analyzed when "workshop analyze" gets no arguments.
var SampleTexts = []string{
	"I love this workshop!",
	"This is terrible",
	"It's an okay day",
	"Machine learning is amazing!",
}

// analyzer is implemented by both the local service adapter and the
// HTTP client, so analyze and batch work the same either way.
type analyzer interface {
	AnalyzeBatch(ctx context.Context, texts []string) ([]model.Result, error)
}

// localAnalyzer runs the offline classifier in-process.
type localAnalyzer struct {
	svc *sentiment.Service
}

func (l localAnalyzer) AnalyzeBatch(ctx context.Context, texts []string) ([]model.Result, error) {
	return l.svc.AnalyzeBatch(ctx, texts), nil
}

// singleAnalyzer posts texts one at a time. Deployed single-function
// endpoints have no batch route.
type singleAnalyzer struct {
	client *sentiment.Client
}

func (s singleAnalyzer) AnalyzeBatch(ctx context.Context, texts []string) ([]model.Result, error) {
	results := make([]model.Result, 0, len(texts))
	for _, t := range texts {
		res, err := s.client.Analyze(ctx, t)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// endpointFlags is shared by the commands that can talk to a deployment.
type endpointFlags struct {
	endpoint string
}

func (f *endpointFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "",
		"Sentiment endpoint URL (default SENTIMENT_ENDPOINT_URL; empty analyzes locally)")
}

// resolve returns the flag value or the configured endpoint.
func (f *endpointFlags) resolve(c *config.Config) string {
	if f.endpoint != "" {
		return f.endpoint
	}
	return c.EndpointURL
}

// newAnalyzer picks the local service when no endpoint is configured.
// batch selects the server's batch route instead of one request per text.
func newAnalyzer(c *config.Config, endpoint string, batch bool) analyzer {
	if endpoint == "" {
		VerboseLog("no endpoint configured, analyzing locally")
		return localAnalyzer{svc: sentiment.NewService(sentiment.NewLexiconClassifier(), c.MaxConcurrentRequests)}
	}
	VerboseLog("analyzing with %s", endpoint)
	client := sentimentClientFor(endpoint).WithTimeout(c.RequestTimeout)
	if batch && !isPlatformEndpoint(endpoint) {
		return client
	}
	return singleAnalyzer{client: client}
}

// sentimentClientFor builds a client for endpoint. A URL that already
// names the /sentiment route is used as-is; any other URL is treated as
// a server root.
func sentimentClientFor(endpoint string) *sentiment.Client {
	trimmed := strings.TrimSuffix(endpoint, "/")
	if strings.HasSuffix(trimmed, sentiment.PathSentiment) {
		base := strings.TrimSuffix(trimmed, sentiment.PathSentiment)
		return sentiment.NewClient(base)
	}
	if isPlatformEndpoint(trimmed) {
		return sentiment.NewEndpointClient(trimmed, "")
	}
	return sentiment.NewClient(trimmed)
}

// isPlatformEndpoint reports whether u is a platform web endpoint, where
// each function is served at the root of its own host.
func isPlatformEndpoint(u string) bool {
	return strings.Contains(u, ".modal.run")
}

// NewAnalyzeCommand creates the "analyze" cobra command.
func NewAnalyzeCommand() *cobra.Command {
	flags := &endpointFlags{}

	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Analyze the sentiment of one or more texts",
		Long: `Analyze the sentiment of each argument.

Without arguments the workshop sample sentences are analyzed. Without
--endpoint (or SENTIMENT_ENDPOINT_URL) texts are analyzed locally.

Examples:
  workshop analyze "I love this workshop!"
  workshop analyze --endpoint https://you--sentiment-analyzer-analyze.modal.run "So cool"
  workshop analyze --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := currentConfig()
			texts := args
			if len(texts) == 0 {
				texts = SampleTexts
			}
			a := newAnalyzer(c, flags.resolve(c), false)
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), a, texts)
		},
	}
	flags.register(cmd)

	return cmd
}

// runAnalyze analyzes texts and prints the results. Per-text failures
// are shown inline; only transport errors abort the command.
func runAnalyze(ctx context.Context, w io.Writer, a analyzer, texts []string) error {
	results, err := a.AnalyzeBatch(ctx, texts)
	if err != nil {
		return err
	}
	printResults(w, texts, results)
	return nil
}

// printResults renders results as JSON or as one text line per result.
func printResults(w io.Writer, texts []string, results []model.Result) {
	if IsJSONOutput() {
		type resultsJSON struct {
			Results []model.Result `json:"results"`
		}
		if results == nil {
			results = []model.Result{}
		}
		_ = writeJSON(w, resultsJSON{Results: results})
		return
	}
	for i, r := range results {
		text := r.Text
		if text == "" && i < len(texts) {
			text = texts[i]
		}
		fmt.Fprintln(w, FormatResultLine(text, r))
	}
}

// FormatResultLine renders a result as `"text" → Positive 😊 (97.3%)`.
func FormatResultLine(text string, r model.Result) string {
	quoted := fmt.Sprintf("%q", truncateText(text, 60))
	if !r.OK() {
		return fmt.Sprintf("%s → %s", quoted, errorStyle.Render(r.String()))
	}
	return fmt.Sprintf("%s → %s", quoted, r.String())
}

// truncateText shortens s to at most n runes, marking the cut with "...".
func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
