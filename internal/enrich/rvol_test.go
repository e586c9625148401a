package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRVolComputeAverageDayYieldsNeutralMultiplier(t *testing.T) {
	p := NewRVolProvider(func(ctx context.Context, ticker string, instant time.Time) (VolumeSnapshot, error) {
		return VolumeSnapshot{ElapsedVolume: 500_000, ElapsedMinutes: 195, Avg20DayVolume: 1_000_000}, nil
	})

	result := p.Compute(context.Background(), "ABCD", time.Now())
	assert.InDelta(t, 1.0, result.RVol, 0.05)
	assert.GreaterOrEqual(t, result.Multiplier, 0.8)
	assert.LessOrEqual(t, result.Multiplier, 1.4)
}

func TestRVolMultiplierClipsAtBounds(t *testing.T) {
	assert.Equal(t, 0.8, rvolMultiplier(0))
	assert.Equal(t, 1.4, rvolMultiplier(10))
}

func TestRVolIdentityOnMissingAverage(t *testing.T) {
	p := NewRVolProvider(func(ctx context.Context, ticker string, instant time.Time) (VolumeSnapshot, error) {
		return VolumeSnapshot{ElapsedVolume: 1000, ElapsedMinutes: 30, Avg20DayVolume: 0}, nil
	})

	result := p.Compute(context.Background(), "ZZZZ", time.Now())
	assert.Equal(t, 1.0, result.RVol)
	assert.Equal(t, 1.0, result.Multiplier)
}
