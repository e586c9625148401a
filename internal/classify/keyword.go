package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeywordEntry is one phrase→weight row in the keyword table. Negative
// weights encode negative-catalyst phrases (e.g. going-concern language).
type KeywordEntry struct {
	Phrase string  `yaml:"phrase"`
	Weight float64 `yaml:"weight"`
}

// KeywordTable is the weighted phrase matcher's full configuration,
// loaded from YAML once at startup; it is not reloaded while the process
// runs.
type KeywordTable struct {
	Entries []KeywordEntry `yaml:"keywords"`
}

// LoadKeywordTable reads a keyword table from path.
func LoadKeywordTable(path string) (*KeywordTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword table: %w", err)
	}
	var t KeywordTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse keyword table: %w", err)
	}
	return &t, nil
}

// DefaultKeywordTable is a small built-in table covering the scenarios
// named in the spec (FDA approval, offerings, going-concern language),
// used when no table file is configured.
func DefaultKeywordTable() *KeywordTable {
	return &KeywordTable{Entries: []KeywordEntry{
		{Phrase: "fda approval", Weight: 0.5},
		{Phrase: "fda clearance", Weight: 0.45},
		{Phrase: "phase 3 results", Weight: 0.4},
		{Phrase: "pivotal trial", Weight: 0.35},
		{Phrase: "merger agreement", Weight: 0.3},
		{Phrase: "definitive agreement", Weight: 0.25},
		{Phrase: "going concern", Weight: -0.6},
		{Phrase: "delisting notice", Weight: -0.5},
		{Phrase: "bankruptcy", Weight: -0.7},
		{Phrase: "restatement", Weight: -0.4},
		{Phrase: "reverse split", Weight: -0.2},
	}}
}

// MatchResult is one phrase hit within a title.
type MatchResult struct {
	Phrase string
	Weight float64
}

// Match applies the weighted matcher against title: case-insensitive
// substring matching at token boundaries. Returns every matched phrase
// alongside its configured weight.
func (t *KeywordTable) Match(title string) []MatchResult {
	lower := strings.ToLower(title)
	var hits []MatchResult
	for _, e := range t.Entries {
		if containsAtWordBoundary(lower, strings.ToLower(e.Phrase)) {
			hits = append(hits, MatchResult{Phrase: e.Phrase, Weight: e.Weight})
		}
	}
	return hits
}

// containsAtWordBoundary reports whether phrase occurs in text such that
// it is not immediately preceded or followed by an alphanumeric
// character — a substring match with token-boundary enforcement.
func containsAtWordBoundary(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	start := 0
	for {
		idx := strings.Index(text[start:], phrase)
		if idx < 0 {
			return false
		}
		abs := start + idx
		before := byte(0)
		if abs > 0 {
			before = text[abs-1]
		}
		after := byte(0)
		if abs+len(phrase) < len(text) {
			after = text[abs+len(phrase)]
		}
		if !isAlnum(before) && !isAlnum(after) {
			return true
		}
		start = abs + 1
		if start >= len(text) {
			return false
		}
	}
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// KeywordScore sums matched weights and clips to [-1, 1] per §4.F step 2.
func KeywordScore(hits []MatchResult) float64 {
	sum := 0.0
	for _, h := range hits {
		sum += h.Weight
	}
	return clip(sum, -1, 1)
}

// PositiveMatchCount counts matches with a positive weight, an input to
// the confidence function.
func PositiveMatchCount(hits []MatchResult) int {
	n := 0
	for _, h := range hits {
		if h.Weight > 0 {
			n++
		}
	}
	return n
}
