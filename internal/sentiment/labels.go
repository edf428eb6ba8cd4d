// Package sentiment implements the workshop's sentiment-analysis API:
// label mapping, the analysis service, its HTTP server and an HTTP client
// for deployed endpoints.
//
// Model inference itself is behind the Classifier interface. The package
// ships LexiconClassifier, a small word-list baseline that lets the API
// run offline during the workshop; real deployments forward to the
// platform-hosted model through Client.
package sentiment

import (
	"math"
	"strings"

	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// Display maps a raw model label to its workshop label and emoji.
type Display struct {
	Label string
	Emoji string
}

// unknownEmoji is used for labels the map does not recognize.
const unknownEmoji = "🤔"

// labelMap covers both the numbered labels emitted by the twitter-roberta
// sentiment model and the named labels emitted by newer checkpoints.
// Keys are lower case.
var labelMap = map[string]Display{
	"label_0":  {Label: model.LabelNegative, Emoji: "😞"},
	"label_1":  {Label: model.LabelNeutral, Emoji: "😐"},
	"label_2":  {Label: model.LabelPositive, Emoji: "😊"},
	"negative": {Label: model.LabelNegative, Emoji: "😞"},
	"neutral":  {Label: model.LabelNeutral, Emoji: "😐"},
	"positive": {Label: model.LabelPositive, Emoji: "😊"},
}

// MapLabel returns the display form of a raw label. Matching is
// case-insensitive; unknown labels are returned unchanged with 🤔.
func MapLabel(raw string) Display {
	if d, ok := labelMap[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return d
	}
	return Display{Label: raw, Emoji: unknownEmoji}
}

// Score is one label's probability as produced by a classifier.
type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Top returns the highest-scoring entry. Ties keep the earlier entry.
// ok is false for an empty slice.
func Top(scores []Score) (Score, bool) {
	if len(scores) == 0 {
		return Score{}, false
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best, true
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
