package classify

import "strings"

// SentimentSource computes a sentiment score in [-1, 1] from a title and
// optional body snippet. Pluggable so a model-backed implementation can
// replace the lexicon default without touching the classifier.
type SentimentSource interface {
	Score(title, bodySnippet string) float64
}

// DisabledSentiment always returns 0, used when ENABLE_SENTIMENT is false.
type DisabledSentiment struct{}

func (DisabledSentiment) Score(title, bodySnippet string) float64 { return 0 }

// lexiconWeights is a small hand-built polarity lexicon; this is a pure
// function over text with no network dependency, in the same spirit as
// the teacher's text-normalization utilities.
var lexiconWeights = map[string]float64{
	"approval": 0.6, "approved": 0.6, "breakthrough": 0.7, "record": 0.4,
	"growth": 0.4, "surge": 0.5, "beats": 0.5, "exceeds": 0.5,
	"partnership": 0.3, "expansion": 0.3, "upgrade": 0.4, "profit": 0.3,

	"delay": -0.4, "delayed": -0.4, "decline": -0.4, "loss": -0.5,
	"lawsuit": -0.5, "investigation": -0.6, "recall": -0.5, "downgrade": -0.4,
	"miss": -0.4, "misses": -0.4, "default": -0.6, "fraud": -0.8,
	"dilution": -0.5, "dilutive": -0.5, "bankruptcy": -0.8,
}

// LexiconSentiment is the default pluggable sentiment source: a
// bag-of-words polarity scorer over the title and body snippet.
type LexiconSentiment struct{}

// Score computes the mean polarity of lexicon-matched words, clipped to
// [-1, 1]. Text with no matched words scores 0.
func (LexiconSentiment) Score(title, bodySnippet string) float64 {
	text := strings.ToLower(title + " " + bodySnippet)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})

	sum := 0.0
	matched := 0
	for _, w := range words {
		if weight, ok := lexiconWeights[w]; ok {
			sum += weight
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return clip(sum/float64(matched), -1, 1)
}
