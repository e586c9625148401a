package dedup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeenMark(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "dedup.db"), 14*24*time.Hour)
	require.NoError(t, err)
	defer store.Close()

	assert.False(t, store.Seen("sec_8k", "acc1"))

	require.NoError(t, store.Mark("sec_8k", "acc1", time.Now()))
	assert.True(t, store.Seen("sec_8k", "acc1"))
	assert.False(t, store.Seen("sec_8k", "acc2"))
}

// R1: purging a dedup entry makes the item eligible again.
func TestPurgeMakesEligibleAgain(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "dedup.db"), time.Hour)
	require.NoError(t, err)
	defer store.Close()

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.Mark("prnewswire", "guid-42", old))
	assert.True(t, store.Seen("prnewswire", "guid-42"))

	purged, err := store.Purge(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	assert.False(t, store.Seen("prnewswire", "guid-42"))
}

// P4: dedup is additive within retention across consecutive cycles.
func TestSizeMonotoneAcrossCycles(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "dedup.db"), 14*24*time.Hour)
	require.NoError(t, err)
	defer store.Close()

	before := store.Size()
	require.NoError(t, store.Mark("sec_8k", "accA", time.Now()))
	require.NoError(t, store.Mark("sec_8k", "accB", time.Now()))
	after := store.Size()

	assert.GreaterOrEqual(t, after, before)
}

func TestFallbackOnCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.db")
	require.NoError(t, os.WriteFile(path, []byte("not a valid bolt database"), 0o600))

	store, err := Open(path, 14*24*time.Hour)
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, store.IsFallback())

	require.NoError(t, store.Mark("sec_8k", "acc1", time.Now()))
	assert.True(t, store.Seen("sec_8k", "acc1"))
}
