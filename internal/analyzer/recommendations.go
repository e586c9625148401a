package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteRecommendations serializes report to path as formatted JSON,
// writing to a temp file in the same directory and renaming over any
// prior output so a reader never observes a partially written file and
// each run's output fully supersedes the last, per §3.
func WriteRecommendations(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create recommendations dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".recommendations-*.tmp")
	if err != nil {
		return fmt.Errorf("create recommendations temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write recommendations: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close recommendations temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename recommendations into place: %w", err)
	}
	return nil
}
