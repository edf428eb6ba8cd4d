package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// ErrEmptyText is the message returned for missing or blank input.
const ErrEmptyText = "Please provide text to analyze"

// ErrNoScores is returned when a classifier yields no scores.
var ErrNoScores = errors.New("classifier returned no scores")

// Service turns classifier scores into workshop results.
type Service struct {
	classifier     Classifier
	maxConcurrency int
}

// NewService creates a Service. maxConcurrency bounds AnalyzeBatch; values
// below 1 are treated as 1.
func NewService(c Classifier, maxConcurrency int) *Service {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Service{classifier: c, maxConcurrency: maxConcurrency}
}

// MaxConcurrency returns the configured concurrency bound.
func (s *Service) MaxConcurrency() int {
	return s.maxConcurrency
}

// Analyze classifies text and returns a result. It never returns a Go
// error: failures are reported in the result's Status and Error fields so
// they can be sent to API clients as-is.
func (s *Service) Analyze(ctx context.Context, text string) model.Result {
	if strings.TrimSpace(text) == "" {
		return model.Result{Status: model.ResultError, Error: ErrEmptyText}
	}

	scores, err := s.classifier.Classify(ctx, text)
	if err == nil && len(scores) == 0 {
		err = ErrNoScores
	}
	if err != nil {
		return model.Result{Text: text, Status: model.ResultError, Error: err.Error()}
	}

	top, _ := Top(scores)
	d := MapLabel(top.Label)
	score := Round(top.Score, 3)
	return model.Result{
		Text:       text,
		Label:      d.Label,
		Score:      &score,
		Confidence: fmt.Sprintf("%.1f%%", Round(top.Score*100, 1)),
		Emoji:      d.Emoji,
		Status:     model.ResultSuccess,
	}
}

// AnalyzeBatch analyzes texts concurrently, at most MaxConcurrency at a
// time, and returns results in input order. A failure for one text does
// not affect the others. Cancelling ctx stops scheduling new work; texts
// that never ran are reported with the context error.
func (s *Service) AnalyzeBatch(ctx context.Context, texts []string) []model.Result {
	results := make([]model.Result, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for i, text := range texts {
		if gctx.Err() != nil {
			results[i] = model.Result{Text: text, Status: model.ResultError, Error: gctx.Err().Error()}
			continue
		}
		g.Go(func() error {
			results[i] = s.Analyze(gctx, text)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
