package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lowfloat/catalystrun/internal/errs"
	"github.com/lowfloat/catalystrun/internal/model"
)

// DiskTier is the second cache tier: content-addressed gob-encoded bar
// tables under a directory, written atomically (temp file + rename).
type DiskTier struct {
	dir string
}

// NewDiskTier ensures dir exists and returns a DiskTier rooted there.
func NewDiskTier(dir string) (*DiskTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskTier{dir: dir}, nil
}

type diskEntry struct {
	Bars      []model.Bar
	FetchedAt time.Time
	TTL       time.Duration
}

func diskKey(ticker string, interval model.Interval, start, end time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d", ticker, interval, start.UnixNano(), end.UnixNano())
	return hex.EncodeToString(h.Sum(nil))
}

func (d *DiskTier) pathFor(key string) string {
	return filepath.Join(d.dir, key+".gob")
}

// Get returns bars for the query if a fresh on-disk entry exists.
func (d *DiskTier) Get(ticker string, interval model.Interval, start, end time.Time) ([]model.Bar, bool) {
	key := diskKey(ticker, interval, start, end)
	f, err := os.Open(d.pathFor(key))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var entry diskEntry
	if err := gob.NewDecoder(f).Decode(&entry); err != nil {
		// Corrupt entry; remove it and report a miss rather than propagate.
		_ = os.Remove(d.pathFor(key))
		return nil, false
	}

	if time.Since(entry.FetchedAt) > entry.TTL {
		return nil, false
	}
	return entry.Bars, true
}

// Set writes bars to disk atomically under the query's content-addressed key.
func (d *DiskTier) Set(ticker string, interval model.Interval, start, end time.Time, bars []model.Bar, ttl time.Duration) error {
	key := diskKey(ticker, interval, start, end)
	finalPath := d.pathFor(key)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return &errs.CacheCorruption{Path: tmpPath, Err: err}
	}

	entry := diskEntry{Bars: bars, FetchedAt: time.Now(), TTL: ttl}
	if err := gob.NewEncoder(f).Encode(entry); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return &errs.CacheCorruption{Path: tmpPath, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return &errs.CacheCorruption{Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return &errs.CacheCorruption{Path: finalPath, Err: err}
	}
	return nil
}
