package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlaceType(t *testing.T) {
	got, err := ParsePlaceType("  City ")
	require.NoError(t, err)
	assert.Equal(t, PlaceTypeCity, got)

	_, err = ParsePlaceType("planet")
	assert.Error(t, err)
}

func TestParseSortOrder(t *testing.T) {
	tests := map[string]SortOrder{
		"":          SortMatch,
		"match":     SortMatch,
		"popular":   SortPopular,
		"COST-LOW":  SortCostLow,
		"cost-high": SortCostHigh,
		"rating":    SortMatch,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseSortOrder(in), "input %q", in)
	}
}

func TestPlaceAttributes_MissingAndValues(t *testing.T) {
	a := PlaceAttributes{Cost: Float(40), Transit: Float(10)}
	assert.Equal(t, []string{"crowd_level", "recommended_stay", "best_season", "accessibility"}, a.Missing())
	assert.Equal(t, [6]float64{40, 0, 0, 0, 10, 0}, a.Values())

	full := Attrs(1, 2, 3, 4, 5, 6)
	assert.Empty(t, full.Missing())
	assert.Equal(t, [6]float64{1, 2, 3, 4, 5, 6}, full.Values())
}

func TestFilterState_Reset(t *testing.T) {
	fs := FilterState{
		Search:      "paris",
		ActiveTypes: []PlaceType{PlaceTypeCity},
		SelectedTag: "food",
		SortOrder:   SortCostHigh,
	}
	fs.Reset()
	assert.Equal(t, FilterState{SortOrder: SortMatch}, fs)
}
