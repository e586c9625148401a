package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMineKeywords_RetainsHighLiftOverThreshold(t *testing.T) {
	missed := []string{
		"Company Announces FDA Approval for new drug",
		"FDA Approval granted to biotech firm",
		"Firm wins FDA Approval after trial",
		"Record quarter following FDA Approval",
		"Shares surge on FDA Approval news",
	}
	nonMissed := []string{
		"Company reports quarterly earnings",
		"Firm announces new hire",
		"Routine filing submitted",
	}

	candidates := MineKeywords(missed, nonMissed)
	require.NotEmpty(t, candidates)

	var found *Candidate
	for i := range candidates {
		if candidates[i].Phrase == "fda approval" {
			found = &candidates[i]
			break
		}
	}
	require.NotNil(t, found, "expected 'fda approval' to be mined as a candidate")
	assert.GreaterOrEqual(t, found.Lift(), minLift)
}

func TestMineKeywords_DropsBelowOccurrenceFloor(t *testing.T) {
	missed := []string{"unique rare phrase appears once"}
	nonMissed := []string{"completely different text"}

	candidates := MineKeywords(missed, nonMissed)
	for _, c := range candidates {
		assert.False(t, c.Phrase == "unique rare phrase", "low-occurrence phrase should be filtered")
	}
}

func TestMineKeywords_EmptyInputsProduceNoCandidates(t *testing.T) {
	candidates := MineKeywords(nil, nil)
	assert.Empty(t, candidates)
}

func TestCandidateLift(t *testing.T) {
	cases := []struct {
		name string
		c    Candidate
		want float64
	}{
		{
			name: "zero totals",
			c:    Candidate{MissedCount: 1, TotalMissed: 0, NonMissedCount: 1, TotalNonMissed: 5},
			want: 0,
		},
		{
			name: "non-missed rate zero with missed hits",
			c:    Candidate{MissedCount: 2, TotalMissed: 10, NonMissedCount: 0, TotalNonMissed: 10},
			want: 1e9,
		},
		{
			name: "balanced lift of two",
			c:    Candidate{MissedCount: 4, TotalMissed: 10, NonMissedCount: 2, TotalNonMissed: 10},
			want: 2,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.c.Lift(), 0.0001)
		})
	}
}
