package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lowfloat/catalystrun/internal/model"
)

// OutcomeStore persists computed Outcome rows so repeated analyzer runs
// over overlapping lookback windows do not refetch bars already scored.
// This supplements spec.md's file-only footprint (§4.J), per "enrich
// from the rest of the pack."
type OutcomeStore interface {
	Save(ctx context.Context, outcome model.Outcome) error
	Get(ctx context.Context, sourceID, canonicalID, ticker string, tf model.Timeframe) (model.Outcome, bool, error)
}

// MemoryOutcomeStore is the default OutcomeStore used when no persistent
// backend is configured: an in-process map, optionally flushed to a
// disk-JSON snapshot.
type MemoryOutcomeStore struct {
	mu       sync.RWMutex
	outcomes map[string]model.Outcome
	path     string
}

// NewMemoryOutcomeStore builds an empty in-memory outcome store.
func NewMemoryOutcomeStore() *MemoryOutcomeStore {
	return &MemoryOutcomeStore{outcomes: make(map[string]model.Outcome)}
}

// NewDiskOutcomeStore builds a MemoryOutcomeStore pre-loaded from (and
// subsequently flushed to) a disk-JSON snapshot at path, used when no
// ANALYZER_DB_DSN is configured but callers still want runs to persist
// across process restarts.
func NewDiskOutcomeStore(path string) (*MemoryOutcomeStore, error) {
	s := &MemoryOutcomeStore{outcomes: make(map[string]model.Outcome), path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read outcome snapshot: %w", err)
	}
	var rows []model.Outcome
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse outcome snapshot: %w", err)
	}
	for _, o := range rows {
		s.outcomes[outcomeKey(o.SourceID, o.CanonicalID, o.Ticker, o.Timeframe)] = o
	}
	return s, nil
}

func outcomeKey(sourceID, canonicalID, ticker string, tf model.Timeframe) string {
	return sourceID + "\x00" + canonicalID + "\x00" + ticker + "\x00" + string(tf)
}

// Save upserts outcome and, when backed by a disk path, flushes the full
// snapshot. The flush is whole-file (not append-only) since the store is
// keyed and overwritten on re-analysis, unlike the write-once journals.
func (s *MemoryOutcomeStore) Save(ctx context.Context, outcome model.Outcome) error {
	s.mu.Lock()
	s.outcomes[outcomeKey(outcome.SourceID, outcome.CanonicalID, outcome.Ticker, outcome.Timeframe)] = outcome
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	return s.flush()
}

func (s *MemoryOutcomeStore) flush() error {
	s.mu.RLock()
	rows := make([]model.Outcome, 0, len(s.outcomes))
	for _, o := range s.outcomes {
		rows = append(rows, o)
	}
	s.mu.RUnlock()

	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal outcome snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create outcome snapshot dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write outcome snapshot: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Get returns a previously saved outcome, if any.
func (s *MemoryOutcomeStore) Get(ctx context.Context, sourceID, canonicalID, ticker string, tf model.Timeframe) (model.Outcome, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.outcomes[outcomeKey(sourceID, canonicalID, ticker, tf)]
	return o, ok, nil
}
