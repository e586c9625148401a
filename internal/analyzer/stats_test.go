package analyzer

import (
	"testing"

	"github.com/lowfloat/catalystrun/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoProportionZTest_IdenticalRatesYieldHighPValue(t *testing.T) {
	z, p := twoProportionZTest(10, 100, 10, 100)
	assert.InDelta(t, 0, z, 0.0001)
	assert.InDelta(t, 1, p, 0.0001)
}

func TestTwoProportionZTest_DivergentRatesYieldLowPValue(t *testing.T) {
	z, p := twoProportionZTest(80, 100, 5, 100)
	assert.Greater(t, z, 0.0)
	assert.Less(t, p, 0.01)
}

func TestTwoProportionZTest_ZeroTotalsAreNeutral(t *testing.T) {
	z, p := twoProportionZTest(0, 0, 5, 10)
	assert.Equal(t, 0.0, z)
	assert.Equal(t, 1.0, p)
}

func TestBenjaminiHochberg_RetainsOnlySignificantAfterCorrection(t *testing.T) {
	pValues := []float64{0.001, 0.01, 0.04, 0.20, 0.50}
	significant := benjaminiHochberg(pValues, bhAlpha)
	require.Len(t, significant, len(pValues))

	assert.True(t, significant[0])
	assert.False(t, significant[3])
	assert.False(t, significant[4])
}

func TestBenjaminiHochberg_EmptyInput(t *testing.T) {
	assert.Empty(t, benjaminiHochberg(nil, bhAlpha))
}

func TestGateAndRecommend_NoCandidatesProducesNoRecommendations(t *testing.T) {
	recs := GateAndRecommend(nil)
	assert.Empty(t, recs)
}

func TestGateAndRecommend_StrongSignalSurvivesGate(t *testing.T) {
	candidates := []Candidate{
		{Phrase: "fda approval", MissedCount: 40, TotalMissed: 50, NonMissedCount: 2, TotalNonMissed: 200},
		{Phrase: "routine filing", MissedCount: 5, TotalMissed: 50, NonMissedCount: 40, TotalNonMissed: 200},
	}
	recs := GateAndRecommend(candidates)
	require.NotEmpty(t, recs)

	var kw []string
	for _, r := range recs {
		kw = append(kw, r.Keyword)
	}
	assert.Contains(t, kw, "fda approval")
}

func TestConservativeWeight_ClipsAtBounds(t *testing.T) {
	assert.Equal(t, 0.3, conservativeWeight(1.0))
	assert.Equal(t, 0.8, conservativeWeight(20.0))
	mid := conservativeWeight(6.0)
	assert.Greater(t, mid, 0.3)
	assert.Less(t, mid, 0.8)
}

func TestToRecommendation_FieldsPopulated(t *testing.T) {
	g := gated{
		Candidate: Candidate{Phrase: "offering", MissedCount: 3, NonMissedCount: 1, TotalMissed: 10, TotalNonMissed: 10},
		pValue:    0.02,
		zScore:    2.1,
	}
	rec := toRecommendation(g)
	assert.Equal(t, "offering", rec.Keyword)
	assert.Equal(t, model.RecNewDiscovered, rec.Kind)
	assert.InDelta(t, 0.98, rec.Confidence, 0.0001)
	assert.Equal(t, 4, rec.Evidence.Occurrences)
	assert.LessOrEqual(t, rec.Evidence.LiftCILow, rec.Evidence.Lift)
	assert.GreaterOrEqual(t, rec.Evidence.LiftCIHigh, rec.Evidence.Lift)
}

func TestBootstrapLiftCI_ZeroTotalsReturnsZeroInterval(t *testing.T) {
	low, high := bootstrapLiftCI(Candidate{Phrase: "x"})
	assert.Equal(t, 0.0, low)
	assert.Equal(t, 0.0, high)
}

func TestBootstrapLiftCI_WideIntervalForNarrowMargins(t *testing.T) {
	narrow := Candidate{Phrase: "narrow", MissedCount: 26, TotalMissed: 50, NonMissedCount: 24, TotalNonMissed: 50}
	clear := Candidate{Phrase: "clear", MissedCount: 45, TotalMissed: 50, NonMissedCount: 5, TotalNonMissed: 50}

	narrowLow, narrowHigh := bootstrapLiftCI(narrow)
	clearLow, clearHigh := bootstrapLiftCI(clear)

	assert.LessOrEqual(t, narrowLow, narrowHigh)
	assert.LessOrEqual(t, clearLow, clearHigh)
	// A candidate whose missed/non-missed rates are nearly identical should
	// have its interval span the neutral lift of 1; a candidate with a
	// clear separation should not.
	assert.LessOrEqual(t, narrowLow, 1.0)
	assert.GreaterOrEqual(t, narrowHigh, 1.0)
	assert.Greater(t, clearLow, 1.0)
}
