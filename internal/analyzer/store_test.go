package analyzer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowfloat/catalystrun/internal/model"
)

func TestMemoryOutcomeStore_SaveAndGet(t *testing.T) {
	s := NewMemoryOutcomeStore()
	ctx := context.Background()

	oc := model.Outcome{SourceID: "rss", CanonicalID: "c1", Ticker: "ABC", Timeframe: model.TF1h, MaxReturn: 0.2}
	require.NoError(t, s.Save(ctx, oc))

	got, ok, err := s.Get(ctx, "rss", "c1", "ABC", model.TF1h)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.2, got.MaxReturn)

	_, ok, err = s.Get(ctx, "rss", "missing", "ABC", model.TF1h)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiskOutcomeStore_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outcomes.json")
	ctx := context.Background()

	s1, err := NewDiskOutcomeStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save(ctx, model.Outcome{
		SourceID: "rss", CanonicalID: "c1", Ticker: "XYZ", Timeframe: model.TF1d, MaxReturn: 0.35,
	}))

	s2, err := NewDiskOutcomeStore(path)
	require.NoError(t, err)
	got, ok, err := s2.Get(ctx, "rss", "c1", "XYZ", model.TF1d)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.35, got.MaxReturn, 0.0001)
}

func TestNewDiskOutcomeStore_MissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nope", "outcomes.json")

	s, err := NewDiskOutcomeStore(path)
	require.NoError(t, err)
	_, ok, err := s.Get(context.Background(), "a", "b", "c", model.TF1h)
	require.NoError(t, err)
	assert.False(t, ok)
}
