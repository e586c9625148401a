package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLinkStripsTrackingParamsAndLowercasesHost(t *testing.T) {
	got := NormalizeLink("HTTPS://Example.COM/path?utm_source=x&id=123")
	assert.Equal(t, "https://example.com/path?id=123", got)
}

func TestNormalizeTitleTrimsWhitespace(t *testing.T) {
	assert.Equal(t, "Acme raises $5M", NormalizeTitle("  Acme raises $5M \n"))
}

func TestHashCanonicalIDIsDeterministic(t *testing.T) {
	a := HashCanonicalID("Acme raises $5M", 1000)
	b := HashCanonicalID("Acme raises $5M", 1000)
	c := HashCanonicalID("Acme raises $5M", 1001)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
