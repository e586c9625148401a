package clock

import (
	"testing"
	"time"

	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() *config.Settings {
	return &config.Settings{
		CycleIntervalRegular:  20 * time.Second,
		CycleIntervalExtended: 30 * time.Second,
		CycleIntervalClosed:   120 * time.Second,
	}
}

func TestSessionAt(t *testing.T) {
	c, err := New(testSettings())
	require.NoError(t, err)

	loc, _ := time.LoadLocation("America/New_York")

	cases := []struct {
		name string
		time time.Time
		want Session
	}{
		{"premarket", time.Date(2026, 7, 27, 6, 0, 0, 0, loc), Premarket},
		{"regular open", time.Date(2026, 7, 27, 9, 30, 0, 0, loc), Regular},
		{"regular midday", time.Date(2026, 7, 27, 12, 0, 0, 0, loc), Regular},
		{"regular close boundary", time.Date(2026, 7, 27, 15, 59, 59, 0, loc), Regular},
		{"afterhours", time.Date(2026, 7, 27, 17, 0, 0, 0, loc), Afterhours},
		{"closed late night", time.Date(2026, 7, 27, 22, 0, 0, 0, loc), Closed},
		{"closed early morning", time.Date(2026, 7, 27, 2, 0, 0, 0, loc), Closed},
		{"weekend", time.Date(2026, 8, 1, 11, 0, 0, 0, loc), Closed}, // Saturday
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.SessionAt(tc.time))
		})
	}
}

func TestNextCycleDelay(t *testing.T) {
	c, err := New(testSettings())
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, c.NextCycleDelay(Regular))
	assert.Equal(t, 30*time.Second, c.NextCycleDelay(Premarket))
	assert.Equal(t, 30*time.Second, c.NextCycleDelay(Afterhours))
	assert.Equal(t, 120*time.Second, c.NextCycleDelay(Closed))
}

func TestSessionAtDeterministic(t *testing.T) {
	c, err := New(testSettings())
	require.NoError(t, err)

	instant := time.Date(2026, 7, 27, 10, 0, 0, 0, time.UTC)
	first := c.SessionAt(instant)
	second := c.SessionAt(instant)
	assert.Equal(t, first, second)
}
