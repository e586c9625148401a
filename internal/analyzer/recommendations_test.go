package analyzer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowfloat/catalystrun/internal/model"
)

func TestWriteRecommendations_WritesValidJSONAndSupersedesPriorOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis", "recommendations.json")

	first := &Report{RunAt: time.Unix(0, 0).UTC(), ItemsConsidered: 1}
	require.NoError(t, WriteRecommendations(path, first))

	second := &Report{
		RunAt:           time.Unix(1000, 0).UTC(),
		ItemsConsidered: 5,
		MissedCount:     2,
		Recommendations: []model.KeywordRecommendation{{Keyword: "fda approval", Kind: model.RecNewDiscovered}},
	}
	require.NoError(t, WriteRecommendations(path, second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 5, got.ItemsConsidered)
	assert.Equal(t, 2, got.MissedCount)
	require.Len(t, got.Recommendations, 1)
	assert.Equal(t, "fda approval", got.Recommendations[0].Keyword)

	entries, err := os.ReadDir(filepath.Join(dir, "analysis"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no leftover temp files should remain")
}
