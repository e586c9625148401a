package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledSentimentAlwaysZero(t *testing.T) {
	s := DisabledSentiment{}
	assert.Equal(t, 0.0, s.Score("breakthrough approval surge", "record growth"))
}

func TestLexiconSentimentPositive(t *testing.T) {
	s := LexiconSentiment{}
	score := s.Score("Company reports record growth and breakthrough approval", "")
	assert.Greater(t, score, 0.0)
}

func TestLexiconSentimentNegative(t *testing.T) {
	s := LexiconSentiment{}
	score := s.Score("Company faces lawsuit and bankruptcy after fraud investigation", "")
	assert.Less(t, score, 0.0)
}

func TestLexiconSentimentNoMatchesIsZero(t *testing.T) {
	s := LexiconSentiment{}
	score := s.Score("the weather was mild across the region today", "")
	assert.Equal(t, 0.0, score)
}

func TestLexiconSentimentClipsToBounds(t *testing.T) {
	s := LexiconSentiment{}
	score := s.Score("fraud fraud fraud bankruptcy bankruptcy", "")
	assert.GreaterOrEqual(t, score, -1.0)
	assert.LessOrEqual(t, score, 1.0)
}
