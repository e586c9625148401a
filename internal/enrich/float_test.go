package enrich

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lowfloat/catalystrun/internal/model"
)

func TestClassifyFloatBuckets(t *testing.T) {
	cases := []struct {
		shares int64
		want   model.FloatClass
	}{
		{5_000_000, model.FloatMicro},
		{25_000_000, model.FloatLow},
		{100_000_000, model.FloatMedium},
		{500_000_000, model.FloatHigh},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, classifyFloat(c.shares))
	}
}

func TestFloatProviderIdentityOnError(t *testing.T) {
	p := NewFloatProvider(func(ctx context.Context, ticker string) (int64, error) {
		return 0, fmt.Errorf("no CIK mapping")
	})

	result := p.Classify(context.Background(), "NOPE")
	assert.Equal(t, model.FloatMedium, result.Class)
	assert.Equal(t, 1.0, result.Multiplier)
}

func TestFloatMultiplierRange(t *testing.T) {
	for _, c := range []model.FloatClass{model.FloatMicro, model.FloatLow, model.FloatMedium, model.FloatHigh} {
		m := floatMultiplier(c)
		assert.GreaterOrEqual(t, m, 0.9)
		assert.LessOrEqual(t, m, 1.3)
	}
}
