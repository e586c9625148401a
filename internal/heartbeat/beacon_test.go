package heartbeat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowfloat/catalystrun/internal/metrics"
	"github.com/lowfloat/catalystrun/internal/model"
)

func TestBeacon_FiresOnlyEveryNCycles(t *testing.T) {
	var posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	counters := NewCounters()
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	b := NewBeacon(counters, reg, srv.URL, 3)

	counters.RecordCycle(5)
	b.Fire(context.Background(), time.Now())
	assert.Equal(t, int32(0), atomic.LoadInt32(&posts))

	counters.RecordCycle(5)
	b.Fire(context.Background(), time.Now())
	assert.Equal(t, int32(0), atomic.LoadInt32(&posts))

	counters.RecordCycle(5)
	b.Fire(context.Background(), time.Now())
	assert.Equal(t, int32(1), atomic.LoadInt32(&posts))
}

func TestBeacon_PostPayloadShape(t *testing.T) {
	received := make(chan adminPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p adminPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	counters := NewCounters()
	counters.RecordCycle(12)
	counters.RecordDispatch()
	counters.RecordRejection(model.ReasonStale)

	b := NewBeacon(counters, nil, srv.URL, 1)
	b.Fire(context.Background(), time.Now())

	select {
	case p := <-received:
		require.Len(t, p.Embeds, 1)
		assert.Equal(t, "catalystrun heartbeat", p.Embeds[0].Title)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for heartbeat post")
	}
}

func TestBeacon_DisabledWebhookSkipsPostButResetsCounters(t *testing.T) {
	counters := NewCounters()
	counters.RecordCycle(1)

	b := NewBeacon(counters, nil, "", 1)
	b.Fire(context.Background(), time.Now())

	s := counters.Snapshot(time.Now())
	assert.Equal(t, int64(0), s.Cycles)
}

func TestBeacon_FailedPostDoesNotPanic(t *testing.T) {
	counters := NewCounters()
	counters.RecordCycle(1)

	b := NewBeacon(counters, nil, "http://127.0.0.1:0/unreachable", 1)
	assert.NotPanics(t, func() {
		b.Fire(context.Background(), time.Now())
	})
}
