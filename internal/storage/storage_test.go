package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/place-matching/internal/domain"
)

const placesJSON = `[
  {"id": "paris", "name": "Paris", "country": "France", "type": "City", "tags": ["food", " art ", ""],
   "description": "City of light",
   "attributes": {"cost": 80, "crowd_level": 90, "recommended_stay": 40, "best_season": 60, "transit": 95, "accessibility": 70},
   "average_rating": 4.7, "population": 2100000},
  {"name": "Mont Saint-Michel", "country": "France", "type": "sight",
   "attributes": {"cost": 50, "crowd_level": 85}}
]`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "places.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPlacesFromFile(t *testing.T) {
	places, err := LoadPlacesFromFile(writeFile(t, placesJSON))
	require.NoError(t, err)
	require.Len(t, places, 2)

	paris := places[0]
	assert.Equal(t, domain.PlaceTypeCity, paris.Type)
	assert.Equal(t, []string{"food", "art"}, paris.Tags)
	assert.Empty(t, paris.Attributes.Missing())
	assert.Equal(t, int64(2100000), paris.Population)

	msm := places[1]
	assert.Equal(t, "mont-saint-michel-france", msm.ID)
	assert.NotNil(t, msm.Tags)
	assert.Empty(t, msm.Tags)
	assert.Equal(t, []string{"recommended_stay", "best_season", "transit", "accessibility"}, msm.Attributes.Missing())
}

func TestLoadPlacesFromFile_Errors(t *testing.T) {
	_, err := LoadPlacesFromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)

	_, err = LoadPlacesFromFile(writeFile(t, `{"not": "an array"}`))
	assert.Error(t, err)

	_, err = LoadPlacesFromFile(writeFile(t, `[{"name": "X", "type": "planet"}]`))
	assert.ErrorIs(t, err, ErrInvalidPlace)

	_, err = LoadPlacesFromFile(writeFile(t, `[{"id": "a", "name": "A", "type": "city"}, {"id": "a", "name": "B", "type": "city"}]`))
	assert.ErrorIs(t, err, ErrInvalidPlace)
}

func TestNormalizePlace(t *testing.T) {
	_, err := NormalizePlace(domain.Place{Name: "  ", Type: domain.PlaceTypeCity})
	assert.ErrorIs(t, err, ErrInvalidPlace)

	_, err = NormalizePlace(domain.Place{Name: "X", Type: domain.PlaceTypeCity, Population: -1})
	assert.ErrorIs(t, err, ErrInvalidPlace)

	p, err := NormalizePlace(domain.Place{Name: " Kyoto ", Country: "Japan", Type: "CITY"})
	require.NoError(t, err)
	assert.Equal(t, "Kyoto", p.Name)
	assert.Equal(t, "kyoto-japan", p.ID)
	assert.Equal(t, domain.PlaceTypeCity, p.Type)
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "places.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	places, err := LoadPlacesFromFile(writeFile(t, placesJSON))
	require.NoError(t, err)
	require.NoError(t, s.UpsertMany(ctx, places))
	// Re-seeding is idempotent.
	require.NoError(t, s.UpsertMany(ctx, places))

	n, err := s.CountPlaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GetPlace(ctx, "paris")
	require.NoError(t, err)
	assert.Equal(t, places[0], got)

	msm, err := s.GetPlace(ctx, "mont-saint-michel-france")
	require.NoError(t, err)
	assert.Nil(t, msm.Attributes.Transit)
	require.NotNil(t, msm.Attributes.Cost)
	assert.Equal(t, 50.0, *msm.Attributes.Cost)

	_, err = s.GetPlace(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.ListPlaces(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "paris", all[0].ID)
}

func TestSQLiteStore_CreateDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p, err := s.CreatePlace(ctx, domain.Place{Name: "Porto", Country: "Portugal", Type: domain.PlaceTypeCity, Tags: []string{"wine"}})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	_, err = s.CreatePlace(ctx, p)
	assert.ErrorIs(t, err, ErrInvalidPlace, "duplicate id must fail")

	ok, err := s.DeletePlace(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeletePlace(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ListPlacesFiltered(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.UpsertMany(ctx, []domain.Place{
		{ID: "a", Name: "Lisbon", Country: "Portugal", Type: domain.PlaceTypeCity, Tags: []string{}},
		{ID: "b", Name: "Belem Tower", Country: "Portugal", Type: domain.PlaceTypeSight, Tags: []string{}},
		{ID: "c", Name: "Madrid", Country: "Spain", Type: domain.PlaceTypeCity, Tags: []string{}},
	}))

	got, err := s.ListPlacesFiltered(ctx, PlaceQuery{Types: []domain.PlaceType{domain.PlaceTypeCity}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, placeIDs(got))

	got, err = s.ListPlacesFiltered(ctx, PlaceQuery{Text: "PORTUGAL"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, placeIDs(got))

	got, err = s.ListPlacesFiltered(ctx, PlaceQuery{Types: []domain.PlaceType{domain.PlaceTypeSight}, Text: "tower"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, placeIDs(got))
}

func placeIDs(ps []domain.Place) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
