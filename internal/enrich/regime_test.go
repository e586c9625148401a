package enrich

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lowfloat/catalystrun/internal/model"
)

func TestClassifyRegimeCrashOnHighVolAndDeepDrawdown(t *testing.T) {
	result := classifyRegime(MarketSnapshot{VolatilityIndex: 45, BroadMarketTrend: -0.20, BreadthThrust: 0.05})
	assert.Equal(t, model.RegimeCrash, result.Regime)
	assert.GreaterOrEqual(t, result.Multiplier, 0.5)
	assert.LessOrEqual(t, result.Multiplier, 1.2)
}

func TestClassifyRegimeBullOnLowVolAndUptrend(t *testing.T) {
	result := classifyRegime(MarketSnapshot{VolatilityIndex: 12, BroadMarketTrend: 0.08, BreadthThrust: 0.7})
	assert.Equal(t, model.RegimeBull, result.Regime)
	assert.GreaterOrEqual(t, result.Multiplier, 1.0)
}

func TestRegimeProviderReturnsIdentityOnFetchError(t *testing.T) {
	p := NewRegimeProvider(func(ctx context.Context, instant time.Time) (MarketSnapshot, error) {
		return MarketSnapshot{}, fmt.Errorf("upstream down")
	})

	result := p.Classify(context.Background(), time.Now())
	assert.Equal(t, model.RegimeNeutral, result.Regime)
	assert.Equal(t, 1.0, result.Multiplier)
}

func TestRegimeProviderCachesWithinTTL(t *testing.T) {
	calls := 0
	p := NewRegimeProvider(func(ctx context.Context, instant time.Time) (MarketSnapshot, error) {
		calls++
		return MarketSnapshot{VolatilityIndex: 15, BroadMarketTrend: 0.02, BreadthThrust: 0.5}, nil
	})

	now := time.Now().Truncate(5 * time.Minute)
	p.Classify(context.Background(), now)
	p.Classify(context.Background(), now.Add(time.Minute))

	assert.Equal(t, 1, calls, "second call within the 5-minute bucket should hit the cache")
}
