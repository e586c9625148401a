package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lowfloat/catalystrun/internal/model"
)

func TestClassifyOfferingSeverityBands(t *testing.T) {
	cases := []struct {
		pct  float64
		want model.OfferingSeverity
	}{
		{0, model.OfferingNone},
		{0.03, model.OfferingMinor},
		{0.10, model.OfferingModerate},
		{0.20, model.OfferingSevere},
		{0.40, model.OfferingExtreme},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, classifyOfferingSeverity(c.pct))
	}
}

func TestOfferingPenaltyWithinBounds(t *testing.T) {
	p := offeringPenalty(model.OfferingExtreme, 0.5, 0)
	assert.GreaterOrEqual(t, p, -0.50)
	assert.LessOrEqual(t, p, 0.0)
}

func TestOfferingPenaltyDecaysWithAge(t *testing.T) {
	fresh := offeringPenalty(model.OfferingSevere, 0.2, 0)
	old := offeringPenalty(model.OfferingSevere, 0.2, 60*24*time.Hour)
	assert.Less(t, fresh, old, "an older filing's penalty should have decayed toward zero")
}

func TestOfferingProviderIdentityWhenNotFound(t *testing.T) {
	p := NewOfferingProvider(func(ctx context.Context, ticker string) (OfferingFiling, error) {
		return OfferingFiling{Found: false}, nil
	})

	result := p.Assess(context.Background(), "CLEAN")
	assert.Equal(t, model.OfferingNone, result.Severity)
	assert.Equal(t, 0.0, result.Penalty)
}
