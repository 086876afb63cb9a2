package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlaces = `[
  {"id": "paris", "name": "Paris", "country": "France", "type": "city", "tags": ["food"],
   "attributes": {"cost": 80, "crowd_level": 90, "recommended_stay": 40, "best_season": 60, "transit": 95, "accessibility": 70}},
  {"id": "louvre", "name": "Louvre", "country": "France", "type": "sight", "tags": ["art"],
   "attributes": {"cost": 30, "crowd_level": 95, "recommended_stay": 10, "best_season": 50, "transit": 90, "accessibility": 85}}
]`

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestScoreCmd(t *testing.T) {
	out := run(t, "score",
		"--cost", "70", "--crowd-level", "30", "--recommended-stay", "50",
		"--best-season", "20", "--place-transit", "60", "--place-accessibility", "80")
	assert.Contains(t, out, "match_score\t81.00")
	assert.Contains(t, out, "trip_length\t100.0")
}

func TestSeedAndRankCmd(t *testing.T) {
	dir := t.TempDir()
	placesPath := filepath.Join(dir, "places.json")
	dbPath := filepath.Join(dir, "places.db")
	require.NoError(t, os.WriteFile(placesPath, []byte(testPlaces), 0o600))

	out := run(t, "seed", "--places", placesPath, "--db", dbPath)
	assert.Contains(t, out, "seeded 2 places, 2 in database")

	out = run(t, "rank", "--db", dbPath, "--sort", "cost-low")
	assert.Regexp(t, `(?s)louvre.*paris`, out)
	assert.Contains(t, out, "2 of 2 places")

	out = run(t, "rank", "--places", placesPath, "--type", "city")
	assert.Contains(t, out, "paris")
	assert.NotContains(t, out, "louvre")
	assert.Contains(t, out, "1 of 1 places")
}

func TestRankCmd_BadType(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"rank", "--type", "planet"})
	assert.Error(t, cmd.Execute())
}
