package matching

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightsSumToFactorCount(t *testing.T) {
	assert.InDelta(t, float64(factorCount), DefaultWeights().Sum(), 1e-9)
}

func TestLoadWeightsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"budget": 2.0, "season": 0.5}`), 0o600))

	w, err := LoadWeightsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, w.Budget)
	assert.Equal(t, 0.5, w.Season)
	assert.Equal(t, DefaultWeights().TripLength, w.TripLength)
}

func TestLoadWeightsFromFile_Errors(t *testing.T) {
	_, err := LoadWeightsFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"budget": "high"`), 0o600))
	w, err := LoadWeightsFromFile(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultWeights(), w)
}
