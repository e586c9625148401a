package heartbeat

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lowfloat/catalystrun/internal/model"
)

func TestCounters_SnapshotComputesItemsPerCycleMean(t *testing.T) {
	c := NewCounters()
	c.RecordCycle(10)
	c.RecordCycle(20)
	c.RecordCycle(30)

	s := c.Snapshot(time.Now())
	assert.Equal(t, int64(3), s.Cycles)
	assert.InDelta(t, 20, s.ItemsPerCycleMean, 0.0001)
}

func TestCounters_SnapshotWithNoCyclesHasZeroMean(t *testing.T) {
	c := NewCounters()
	s := c.Snapshot(time.Now())
	assert.Equal(t, int64(0), s.Cycles)
	assert.Equal(t, 0.0, s.ItemsPerCycleMean)
}

func TestCounters_CacheHitRateComputation(t *testing.T) {
	c := NewCounters()
	c.RecordCacheHit("memory")
	c.RecordCacheHit("memory")
	c.RecordCacheHit("memory")
	c.RecordCacheMiss("memory")

	s := c.Snapshot(time.Now())
	assert.InDelta(t, 0.75, s.CacheHitRate["memory"], 0.0001)
}

func TestCounters_RejectionsAndProviderErrors(t *testing.T) {
	c := NewCounters()
	c.RecordRejection(model.ReasonDuplicate)
	c.RecordRejection(model.ReasonDuplicate)
	c.RecordRejection(model.ReasonStale)
	c.RecordProviderError("tiingo")

	s := c.Snapshot(time.Now())
	assert.Equal(t, int64(2), s.Rejections[model.ReasonDuplicate])
	assert.Equal(t, int64(1), s.Rejections[model.ReasonStale])
	assert.Equal(t, int64(1), s.ProviderErrors["tiingo"])
}

func TestCounters_RecordErrorTracksLastErrorAndIgnoresNil(t *testing.T) {
	c := NewCounters()
	now := time.Now()
	c.RecordError(errors.New("boom"), now)
	c.RecordError(nil, now.Add(time.Hour))

	s := c.Snapshot(time.Now())
	assert.Equal(t, "boom", s.LastError)
	assert.Equal(t, now, s.LastErrorTime)
}

func TestCounters_ResetClearsAllAccumulators(t *testing.T) {
	c := NewCounters()
	c.RecordCycle(5)
	c.RecordDispatch()
	c.RecordRejection(model.ReasonStale)
	c.Reset()

	s := c.Snapshot(time.Now())
	assert.Equal(t, int64(0), s.Cycles)
	assert.Equal(t, int64(0), s.Dispatched)
	assert.Empty(t, s.Rejections)
}
