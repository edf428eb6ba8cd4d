package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexiconClassifier_WorkshopSamples(t *testing.T) {
	c := NewLexiconClassifier()

	tests := []struct {
		text string
		want string
	}{
		{"I love this workshop!", "positive"},
		{"This is terrible", "negative"},
		{"It's an okay day", "neutral"},
		{"Machine learning is amazing!", "positive"},
		{"This is not good", "negative"},
		{"I don't hate it", "positive"},
		{"", "neutral"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			scores, err := c.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			require.Len(t, scores, 3)

			sum := 0.0
			for _, s := range scores {
				sum += s.Score
			}
			assert.InDelta(t, 1.0, sum, 1e-9)

			top, ok := Top(scores)
			require.True(t, ok)
			assert.Equal(t, tt.want, top.Label)
		})
	}
}

func TestLexiconClassifier_StrongerTextScoresHigher(t *testing.T) {
	c := NewLexiconClassifier()

	one, err := c.Classify(context.Background(), "good")
	require.NoError(t, err)
	three, err := c.Classify(context.Background(), "good great excellent")
	require.NoError(t, err)

	assert.Greater(t, three[2].Score, one[2].Score)
}

func TestLexiconClassifier_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLexiconClassifier().Classify(ctx, "good")
	assert.ErrorIs(t, err, context.Canceled)
}
