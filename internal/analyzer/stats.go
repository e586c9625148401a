package analyzer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/lowfloat/catalystrun/internal/model"
)

// bhAlpha is the false-discovery rate the Benjamini-Hochberg step-up
// procedure controls across every tested phrase, per §9.
const bhAlpha = 0.05

// bootstrapResamples is the resample count §9 mandates for the lift
// confidence interval.
const bootstrapResamples = 10000

// bootstrapCILow and bootstrapCIHigh are the percentile cut points for a
// 95% bootstrap confidence interval.
const (
	bootstrapCILow  = 0.025
	bootstrapCIHigh = 0.975
)

// pValueSignificanceCeiling is the per-test threshold §4.J step 7 names
// before the BH correction is applied across the batch.
const pValueSignificanceCeiling = 0.05

// gated is a Candidate annotated with its test statistics, carried
// through the BH step so the final recommendation can report evidence.
type gated struct {
	Candidate
	pValue float64
	zScore float64
}

// twoProportionZTest tests whether a phrase's occurrence rate among
// missed-opportunity titles differs significantly from its occurrence
// rate among non-missed titles, via a standard two-sample proportion
// z-test with a pooled variance estimate. Returns the z statistic and
// its two-sided p-value.
func twoProportionZTest(successesA, totalA, successesB, totalB int) (z, pValue float64) {
	if totalA == 0 || totalB == 0 {
		return 0, 1
	}

	p1 := float64(successesA) / float64(totalA)
	p2 := float64(successesB) / float64(totalB)
	pooled := float64(successesA+successesB) / float64(totalA+totalB)

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(totalA) + 1/float64(totalB)))
	if se == 0 {
		return 0, 1
	}

	z = (p1 - p2) / se

	standardNormal := distuv.Normal{Mu: 0, Sigma: 1}
	// Two-sided p-value: 2 * P(Z >= |z|).
	pValue = 2 * (1 - standardNormal.CDF(math.Abs(z)))
	return z, pValue
}

// benjaminiHochberg applies the step-up BH procedure over sorted p-values
// and reports which indices (into the original, unsorted slice) survive
// at the given false-discovery rate. This is a short, well-known
// algorithm with no canonical Go package in the ecosystem or retrieval
// pack, so it is implemented directly rather than depending on one.
func benjaminiHochberg(pValues []float64, fdr float64) []bool {
	n := len(pValues)
	significant := make([]bool, n)
	if n == 0 {
		return significant
	}

	type indexed struct {
		idx int
		p   float64
	}
	sorted := make([]indexed, n)
	for i, p := range pValues {
		sorted[i] = indexed{idx: i, p: p}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].p < sorted[j].p })

	// Find the largest rank k such that p(k) <= (k/n) * fdr; every
	// hypothesis at or below that rank is retained.
	largestK := -1
	for k := n; k >= 1; k-- {
		threshold := (float64(k) / float64(n)) * fdr
		if sorted[k-1].p <= threshold {
			largestK = k
			break
		}
	}

	for rank := 0; rank < largestK; rank++ {
		significant[sorted[rank].idx] = true
	}
	return significant
}

// bootstrapLiftCI resamples a candidate's missed/non-missed success counts
// bootstrapResamples times and returns the 95% percentile interval of the
// resulting lift distribution, per §9's mandatory bootstrap CI. Each group's
// observed proportion is resampled from a Binomial(n, pHat) model, since the
// analyzer retains only aggregate occurrence counts per phrase rather than
// the underlying per-title Bernoulli outcomes.
func bootstrapLiftCI(c Candidate) (low, high float64) {
	if c.TotalMissed == 0 || c.TotalNonMissed == 0 {
		return 0, 0
	}

	pMissed := float64(c.MissedCount) / float64(c.TotalMissed)
	pNonMissed := float64(c.NonMissedCount) / float64(c.TotalNonMissed)

	missedDist := distuv.Binomial{N: float64(c.TotalMissed), P: pMissed}
	nonMissedDist := distuv.Binomial{N: float64(c.TotalNonMissed), P: pNonMissed}

	lifts := make([]float64, bootstrapResamples)
	for i := range lifts {
		rMissed := missedDist.Rand() / float64(c.TotalMissed)
		rNonMissed := nonMissedDist.Rand() / float64(c.TotalNonMissed)
		if rNonMissed == 0 {
			if rMissed > 0 {
				lifts[i] = 1e9
			}
			continue
		}
		lifts[i] = rMissed / rNonMissed
	}

	sort.Float64s(lifts)
	low = lifts[int(bootstrapCILow*float64(bootstrapResamples))]
	high = lifts[int(bootstrapCIHigh*float64(bootstrapResamples))-1]
	return low, high
}

// GateAndRecommend implements §4.J steps 7-8: each candidate keyword is
// tested via a proportion z-test against the non-missed rate, the whole
// batch is BH-corrected at bhAlpha, and every surviving candidate is
// emitted as a KeywordRecommendation with a conservative initial weight.
func GateAndRecommend(candidates []Candidate) []model.KeywordRecommendation {
	if len(candidates) == 0 {
		return nil
	}

	results := make([]gated, len(candidates))
	pValues := make([]float64, len(candidates))
	for i, c := range candidates {
		z, p := twoProportionZTest(c.MissedCount, c.TotalMissed, c.NonMissedCount, c.TotalNonMissed)
		results[i] = gated{Candidate: c, zScore: z, pValue: p}
		pValues[i] = p
	}

	significant := benjaminiHochberg(pValues, bhAlpha)

	var recs []model.KeywordRecommendation
	for i, g := range results {
		if g.pValue >= pValueSignificanceCeiling || !significant[i] {
			continue
		}
		recs = append(recs, toRecommendation(g))
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Evidence.Lift > recs[j].Evidence.Lift })
	return recs
}

// toRecommendation converts a gated candidate into a KeywordRecommendation
// with a conservative weight, per §4.J step 8 (0.3-0.8 for new keywords,
// scaled by lift; this analyzer has no prior-table context here, so every
// emitted candidate is treated as "new"; the recommendations file is not
// merged back into the classifier's keyword table).
func toRecommendation(g gated) model.KeywordRecommendation {
	successRate := 0.0
	if g.TotalMissed > 0 {
		successRate = float64(g.MissedCount) / float64(g.TotalMissed)
	}

	lift := g.Lift()
	weight := conservativeWeight(lift)
	ciLow, ciHigh := bootstrapLiftCI(g.Candidate)

	return model.KeywordRecommendation{
		Keyword:           g.Phrase,
		Kind:              model.RecNewDiscovered,
		RecommendedWeight: weight,
		Confidence:        1 - g.pValue,
		Evidence: model.Evidence{
			Occurrences: g.MissedCount + g.NonMissedCount,
			Successes:   g.MissedCount,
			SuccessRate: successRate,
			Lift:        lift,
			LiftCILow:   ciLow,
			LiftCIHigh:  ciHigh,
			SampleSize:  g.TotalMissed + g.TotalNonMissed,
			PValue:      g.pValue,
		},
	}
}

// conservativeWeight maps lift onto the spec's [0.3, 0.8] band for new
// keywords, scaling linearly and clipping at the extremes so a single
// very high lift outlier cannot dominate the keyword table on one run.
func conservativeWeight(lift float64) float64 {
	const (
		loLift, hiLift = 2.0, 10.0
		loW, hiW       = 0.3, 0.8
	)
	if lift <= loLift {
		return loW
	}
	if lift >= hiLift {
		return hiW
	}
	frac := (lift - loLift) / (hiLift - loLift)
	return loW + frac*(hiW-loW)
}
