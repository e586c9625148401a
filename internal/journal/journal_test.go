package journal

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowfloat/catalystrun/internal/model"
)

func TestAppendWritesOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	rec := model.ScoredItem{RawItem: model.RawItem{SourceID: "sec_8k", CanonicalID: "a1"}}.ToEventRecord()
	require.NoError(t, j.Append(rec))
	require.NoError(t, j.Append(rec))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
		assert.Contains(t, scanner.Text(), `"schema":"v1"`)
	}
	assert.Equal(t, 2, lines)
}

func TestRotateArchivesOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()
	j.maxBytes = 10

	rec := model.ScoredItem{RawItem: model.RawItem{SourceID: "sec_8k", CanonicalID: "a1"}}.ToEventRecord()
	require.NoError(t, j.Append(rec))
	require.NoError(t, j.Append(rec))

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestReadRejectedSinceFiltersByWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejected_items.jsonl")
	j, err := Open(path)
	require.NoError(t, err)

	old := model.RejectedItem{
		ScoredItem:      model.ScoredItem{RawItem: model.RawItem{SourceID: "s", CanonicalID: "old", TSPublished: time.Now().Add(-48 * time.Hour)}},
		RejectionReason: model.ReasonStale,
	}
	recent := model.RejectedItem{
		ScoredItem:      model.ScoredItem{RawItem: model.RawItem{SourceID: "s", CanonicalID: "recent", TSPublished: time.Now()}},
		RejectionReason: model.ReasonBelowMinScore,
	}
	require.NoError(t, j.Append(old.ToEventRecord()))
	require.NoError(t, j.Append(recent.ToEventRecord()))
	require.NoError(t, j.Close())

	recs, err := ReadRejectedSince(path, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "recent", recs[0].CanonicalID)
}

func TestReadRejectedSinceMissingFileReturnsEmpty(t *testing.T) {
	recs, err := ReadRejectedSince(filepath.Join(t.TempDir(), "missing.jsonl"), time.Now())
	require.NoError(t, err)
	assert.Empty(t, recs)
}
