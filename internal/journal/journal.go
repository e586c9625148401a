// Package journal implements the two append-only JSON-line event logs
// (§4.I): events.jsonl for accepted items and rejected_items.jsonl for
// rejected ones. Every record is marshaled in full before the single
// Write syscall that appends it (format-then-write-once per spec.md §5),
// and rotation is size-based with rename-and-reopen archival.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lowfloat/catalystrun/internal/model"
)

// defaultMaxBytes is the rotation threshold; no size-rotation library
// appears in the retrieval pack, so rotation is implemented directly
// rather than depending on one.
const defaultMaxBytes = 64 * 1024 * 1024

// Journal is a single append-only JSONL file with size-based rotation.
// Concurrent append from multiple processes is not supported (§5); a
// mutex serializes writers within this process.
type Journal struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	size     int64
	maxBytes int64
}

// Open opens (creating if necessary) the JSONL file at path for append.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat journal %s: %w", path, err)
	}
	return &Journal{path: path, file: f, size: info.Size(), maxBytes: defaultMaxBytes}, nil
}

// Append marshals rec to a single line and writes it in one syscall,
// rotating first if the file has grown past the size threshold.
func (j *Journal) Append(rec model.EventRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal event record: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.size+int64(len(line)) > j.maxBytes {
		if err := j.rotateLocked(); err != nil {
			log.Error().Err(err).Str("path", j.path).Msg("journal rotation failed, continuing to append")
		}
	}

	n, err := j.file.Write(line)
	if err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	j.size += int64(n)
	return nil
}

// rotateLocked renames the current file to a timestamped archive name and
// reopens a fresh file at the original path. Caller must hold j.mu.
func (j *Journal) rotateLocked() error {
	if err := j.file.Close(); err != nil {
		return err
	}

	archive := fmt.Sprintf("%s.%s", j.path, time.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(j.path, archive); err != nil {
		return err
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	j.file = f
	j.size = 0
	return nil
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
