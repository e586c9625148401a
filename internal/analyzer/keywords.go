package analyzer

import (
	"strings"
)

// Candidate is a phrase mined from titles, with the raw occurrence counts
// the statistical gate needs to judge significance.
type Candidate struct {
	Phrase          string
	MissedCount     int
	NonMissedCount  int
	TotalMissed     int
	TotalNonMissed  int
}

// Lift is P(phrase | missed) / P(phrase | not missed), the ranking
// statistic §4.J step 6 defines for candidate phrases.
func (c Candidate) Lift() float64 {
	if c.TotalMissed == 0 || c.TotalNonMissed == 0 {
		return 0
	}
	pMissed := float64(c.MissedCount) / float64(c.TotalMissed)
	pNonMissed := float64(c.NonMissedCount) / float64(c.TotalNonMissed)
	if pNonMissed == 0 {
		if pMissed > 0 {
			return 1e9 // effectively infinite lift; the occurrence-count floor still gates it
		}
		return 0
	}
	return pMissed / pNonMissed
}

const (
	minOccurrences = 5
	minLift        = 2.0
	minNGram       = 1
	maxNGram       = 4
)

// MineKeywords extracts 1-4-grams from missed and non-missed titles and
// retains phrases occurring at least minOccurrences times overall with
// lift at least minLift, per §4.J step 6.
func MineKeywords(missedTitles, nonMissedTitles []string) []Candidate {
	missedCounts := ngramCounts(missedTitles)
	nonMissedCounts := ngramCounts(nonMissedTitles)

	seen := make(map[string]bool)
	var candidates []Candidate

	consider := func(phrase string) {
		if seen[phrase] {
			return
		}
		seen[phrase] = true

		mc := missedCounts[phrase]
		nc := nonMissedCounts[phrase]
		if mc+nc < minOccurrences {
			return
		}

		cand := Candidate{
			Phrase:         phrase,
			MissedCount:    mc,
			NonMissedCount: nc,
			TotalMissed:    len(missedTitles),
			TotalNonMissed: len(nonMissedTitles),
		}
		if cand.Lift() >= minLift {
			candidates = append(candidates, cand)
		}
	}

	for phrase := range missedCounts {
		consider(phrase)
	}
	for phrase := range nonMissedCounts {
		consider(phrase)
	}

	return candidates
}

// ngramCounts tokenizes each title and counts every 1-4-gram it contains,
// once per title (document frequency, not raw term frequency), so a
// phrase repeated within one headline is not over-weighted.
func ngramCounts(titles []string) map[string]int {
	counts := make(map[string]int)
	for _, title := range titles {
		tokens := tokenize(title)
		seenInTitle := make(map[string]bool)
		for n := minNGram; n <= maxNGram; n++ {
			for i := 0; i+n <= len(tokens); i++ {
				phrase := strings.Join(tokens[i:i+n], " ")
				if !seenInTitle[phrase] {
					seenInTitle[phrase] = true
					counts[phrase]++
				}
			}
		}
	}
	return counts
}

func tokenize(title string) []string {
	lower := strings.ToLower(title)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	return fields
}
