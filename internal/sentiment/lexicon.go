package sentiment

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// Classifier produces per-label scores for a text. Implementations must be
// safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Score, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string) ([]Score, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, text string) ([]Score, error) {
	return f(ctx, text)
}

// LexiconClassifier scores text by counting positive and negative words.
// It emits the named labels "negative", "neutral" and "positive" with
// scores that sum to 1.
//
// It is a teaching baseline for running the API offline, not a model.
type LexiconClassifier struct {
	positive map[string]bool
	negative map[string]bool
}

var (
	defaultPositive = []string{
		"amazing", "awesome", "beautiful", "best", "brilliant", "cool", "delightful",
		"enjoy", "enjoyed", "excellent", "fantastic", "fun", "glad", "good", "great",
		"happy", "helpful", "impressive", "incredible", "like", "love", "loved",
		"nice", "perfect", "pleasant", "superb", "thanks", "wonderful",
	}
	defaultNegative = []string{
		"angry", "annoying", "awful", "bad", "boring", "broken", "confusing",
		"disappointed", "disappointing", "dislike", "fail", "failed", "hate",
		"hated", "horrible", "poor", "sad", "slow", "terrible", "ugly", "unhappy",
		"useless", "worse", "worst", "wrong",
	}
	negators = map[string]bool{
		"not": true, "no": true, "never": true, "isn't": true, "wasn't": true,
		"don't": true, "doesn't": true, "didn't": true, "can't": true, "won't": true,
	}
)

// NewLexiconClassifier creates a classifier with the built-in word lists.
func NewLexiconClassifier() *LexiconClassifier {
	c := &LexiconClassifier{
		positive: make(map[string]bool, len(defaultPositive)),
		negative: make(map[string]bool, len(defaultNegative)),
	}
	for _, w := range defaultPositive {
		c.positive[w] = true
	}
	for _, w := range defaultNegative {
		c.negative[w] = true
	}
	return c
}

// Classify implements Classifier.
//
// A negator directly before a sentiment word flips its polarity. The net
// polarity p = positives - negatives is turned into three scores with a
// softmax over (-p, 0.5, p) so text without sentiment words is neutral.
func (c *LexiconClassifier) Classify(ctx context.Context, text string) ([]Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := tokenize(text)
	pos, neg := 0, 0
	for i, w := range words {
		flip := i > 0 && negators[words[i-1]]
		switch {
		case c.positive[w] && !flip, c.negative[w] && flip:
			pos++
		case c.negative[w] && !flip, c.positive[w] && flip:
			neg++
		}
	}

	p := float64(pos - neg)
	logits := []float64{-p, 0.5, p}
	probs := softmax(logits)
	return []Score{
		{Label: "negative", Score: probs[0]},
		{Label: "neutral", Score: probs[1]},
		{Label: "positive", Score: probs[2]},
	}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func softmax(xs []float64) []float64 {
	maxV := math.Inf(-1)
	for _, x := range xs {
		maxV = math.Max(maxV, x)
	}
	sum := 0.0
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Exp(x - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
