package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/lowfloat/catalystrun/internal/model"
)

// Journals bundles the two journals the pipeline writes: accepted items
// and rejected items.
type Journals struct {
	Events   *Journal
	Rejected *Journal
}

// OpenJournals opens both journals at the paths named in settings.
func OpenJournals(settings *config.Settings) (*Journals, error) {
	events, err := Open(settings.EventsPath)
	if err != nil {
		return nil, err
	}
	rejected, err := Open(settings.RejectedEventsPath)
	if err != nil {
		events.Close()
		return nil, err
	}
	return &Journals{Events: events, Rejected: rejected}, nil
}

// RecordAccepted appends an accepted item to events.jsonl.
func (j *Journals) RecordAccepted(item model.ScoredItem) error {
	return j.Events.Append(item.ToEventRecord())
}

// RecordRejected appends a rejected item to rejected_items.jsonl.
func (j *Journals) RecordRejected(item model.RejectedItem) error {
	return j.Rejected.Append(item.ToEventRecord())
}

// Close closes both journals.
func (j *Journals) Close() error {
	err1 := j.Events.Close()
	err2 := j.Rejected.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// ReadRejectedSince streams rejected_items.jsonl and returns every record
// with ts_published at or after since. Used by the historical analyzer,
// which must see a snapshot at its start and never mutate the source file.
func ReadRejectedSince(path string, since time.Time) ([]model.EventRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []model.EventRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.EventRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if !rec.TSPublished.Before(since) {
			out = append(out, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("scan %s: %w", path, err)
	}
	return out, nil
}
