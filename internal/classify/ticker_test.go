package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTickersPrefersHint(t *testing.T) {
	got := ResolveTickers("Some unrelated headline", []string{"ABC", "ABC", "XYZ"})
	assert.Equal(t, []string{"ABC", "XYZ"}, got)
}

func TestResolveTickersExchangeQualified(t *testing.T) {
	got := ResolveTickers("Acme Corp (NASDAQ: ACME) announces results", nil)
	assert.Equal(t, []string{"ACME"}, got)
}

func TestResolveTickersBareSymbolFallback(t *testing.T) {
	got := ResolveTickers("XYZ surges after strong earnings report", nil)
	assert.Contains(t, got, "XYZ")
}

func TestResolveTickersFiltersCommonAcronyms(t *testing.T) {
	got := ResolveTickers("FDA grants approval ahead of CEO remarks", nil)
	assert.Empty(t, got)
}

func TestResolveTickersNoCandidates(t *testing.T) {
	got := ResolveTickers("quarterly market wrap up for investors", nil)
	assert.Empty(t, got)
}
