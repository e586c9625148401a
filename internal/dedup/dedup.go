// Package dedup implements the persistent (source_id, canonical_id) set
// that suppresses already-seen items across restarts (§4.B).
package dedup

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/lowfloat/catalystrun/internal/errs"
)

// Store is a single-writer, multi-reader-tolerant dedup set backed by an
// embedded key-value database. On corruption it falls back to an
// in-memory set for the remainder of the process lifetime rather than
// crashing.
type Store struct {
	db        *bbolt.DB
	retention time.Duration
	path      string

	mu        sync.RWMutex
	fallback  bool
	memSeen   map[string]time.Time
}

const rootBucket = "dedup"

// Open opens (creating if necessary) the embedded dedup database at path.
func Open(path string, retention time.Duration) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("dedup store open failed, falling back to in-memory")
		return &Store{retention: retention, path: path, fallback: true, memSeen: make(map[string]time.Time)}, nil
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		return err
	})
	if err != nil {
		db.Close()
		log.Error().Err(err).Msg("dedup store init failed, falling back to in-memory")
		return &Store{retention: retention, path: path, fallback: true, memSeen: make(map[string]time.Time)}, nil
	}

	return &Store{db: db, retention: retention, path: path, memSeen: make(map[string]time.Time)}, nil
}

func key(sourceID, canonicalID string) string {
	return sourceID + "\x00" + canonicalID
}

// Seen reports whether (sourceID, canonicalID) has already been marked.
func (s *Store) Seen(sourceID, canonicalID string) bool {
	k := key(sourceID, canonicalID)

	s.mu.RLock()
	fallback := s.fallback
	s.mu.RUnlock()

	if fallback {
		s.mu.RLock()
		defer s.mu.RUnlock()
		_, ok := s.memSeen[k]
		return ok
	}

	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(rootBucket))
		found = b.Get([]byte(k)) != nil
		return nil
	})
	if err != nil {
		s.switchToFallback(err)
		return s.Seen(sourceID, canonicalID)
	}
	return found
}

// Mark records (sourceID, canonicalID) as seen at tsObserved. Only the
// cycle loop calls Mark, and only after an item has been fully processed.
func (s *Store) Mark(sourceID, canonicalID string, tsObserved time.Time) error {
	k := key(sourceID, canonicalID)

	s.mu.RLock()
	fallback := s.fallback
	s.mu.RUnlock()

	if fallback {
		s.mu.Lock()
		s.memSeen[k] = tsObserved
		s.mu.Unlock()
		return nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(rootBucket))
		return b.Put([]byte(k), []byte(tsObserved.UTC().Format(time.RFC3339)))
	})
	if err != nil {
		s.switchToFallback(err)
		s.mu.Lock()
		s.memSeen[k] = tsObserved
		s.mu.Unlock()
		return &errs.DedupStoreError{Err: err}
	}
	return nil
}

// Purge removes entries older than the configured retention. Called
// opportunistically (e.g. once per cycle or on a daily tick).
func (s *Store) Purge(now time.Time) (purged int, err error) {
	s.mu.RLock()
	fallback := s.fallback
	s.mu.RUnlock()

	cutoff := now.Add(-s.retention)

	if fallback {
		s.mu.Lock()
		defer s.mu.Unlock()
		for k, ts := range s.memSeen {
			if ts.Before(cutoff) {
				delete(s.memSeen, k)
				purged++
			}
		}
		return purged, nil
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(rootBucket))
		c := b.Cursor()
		var staleKeys [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			ts, parseErr := time.Parse(time.RFC3339, string(v))
			if parseErr != nil || ts.Before(cutoff) {
				cp := make([]byte, len(k))
				copy(cp, k)
				staleKeys = append(staleKeys, cp)
			}
		}
		for _, k := range staleKeys {
			if err := b.Delete(k); err != nil {
				return err
			}
			purged++
		}
		return nil
	})
	if err != nil {
		s.switchToFallback(err)
		return 0, &errs.DedupStoreError{Err: err}
	}
	return purged, nil
}

// Size returns the number of live entries, used to verify P4 (dedup is
// additive within retention across consecutive cycles).
func (s *Store) Size() int {
	s.mu.RLock()
	fallback := s.fallback
	s.mu.RUnlock()

	if fallback {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.memSeen)
	}

	var n int
	_ = s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(rootBucket)).Stats().KeyN
		return nil
	})
	return n
}

// IsFallback reports whether the store degraded to in-memory mode.
func (s *Store) IsFallback() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fallback
}

func (s *Store) switchToFallback(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fallback {
		return
	}
	s.fallback = true
	log.Error().Err(cause).Str("path", s.path).Msg("dedup store corruption detected, switching to in-memory fallback")
	if s.db != nil {
		_ = s.db.Close()
	}
}

// Close releases the underlying database handle, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close dedup store: %w", err)
	}
	return nil
}
