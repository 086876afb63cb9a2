package domain

import (
	"fmt"
	"strings"
)

type PlaceType string

const (
	PlaceTypeCountry      PlaceType = "country"
	PlaceTypeRegion       PlaceType = "region"
	PlaceTypeCity         PlaceType = "city"
	PlaceTypeNeighborhood PlaceType = "neighborhood"
	PlaceTypeSight        PlaceType = "sight"
)

// AllPlaceTypes returns every known place type, broadest first.
func AllPlaceTypes() []PlaceType {
	return []PlaceType{
		PlaceTypeCountry,
		PlaceTypeRegion,
		PlaceTypeCity,
		PlaceTypeNeighborhood,
		PlaceTypeSight,
	}
}

// ParsePlaceType accepts any casing and surrounding whitespace.
func ParsePlaceType(s string) (PlaceType, error) {
	t := PlaceType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllPlaceTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown place type %q", s)
}

type Place struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Country       string          `json:"country"`
	Type          PlaceType       `json:"type"`
	Tags          []string        `json:"tags"`
	Description   string          `json:"description"`
	Attributes    PlaceAttributes `json:"attributes"`
	AverageRating float64         `json:"average_rating"`
	Population    int64           `json:"population"`
}

// PlaceAttributes holds the scalars used for scoring, each on a 0..100 scale.
// A nil field means the source record did not carry the value.
type PlaceAttributes struct {
	Cost            *float64 `json:"cost,omitempty"`
	CrowdLevel      *float64 `json:"crowd_level,omitempty"`
	RecommendedStay *float64 `json:"recommended_stay,omitempty"`
	BestSeason      *float64 `json:"best_season,omitempty"`
	Transit         *float64 `json:"transit,omitempty"`
	Accessibility   *float64 `json:"accessibility,omitempty"`
}

// Float is a helper for building attribute literals.
func Float(v float64) *float64 { return &v }

// Attrs builds a fully populated PlaceAttributes in field order:
// cost, crowd level, recommended stay, best season, transit, accessibility.
func Attrs(cost, crowd, stay, season, transit, access float64) PlaceAttributes {
	return PlaceAttributes{
		Cost:            Float(cost),
		CrowdLevel:      Float(crowd),
		RecommendedStay: Float(stay),
		BestSeason:      Float(season),
		Transit:         Float(transit),
		Accessibility:   Float(access),
	}
}

// Missing lists the JSON names of attributes that are absent.
func (a PlaceAttributes) Missing() []string {
	var out []string
	check := func(name string, v *float64) {
		if v == nil {
			out = append(out, name)
		}
	}
	check("cost", a.Cost)
	check("crowd_level", a.CrowdLevel)
	check("recommended_stay", a.RecommendedStay)
	check("best_season", a.BestSeason)
	check("transit", a.Transit)
	check("accessibility", a.Accessibility)
	return out
}

// CostValue and CrowdLevelValue read a scalar with the missing-as-zero convention.
func (a PlaceAttributes) CostValue() float64       { return valueOrZero(a.Cost) }
func (a PlaceAttributes) CrowdLevelValue() float64 { return valueOrZero(a.CrowdLevel) }

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Values returns the six scalars in field order, missing ones as 0.
func (a PlaceAttributes) Values() [6]float64 {
	return [6]float64{
		valueOrZero(a.Cost),
		valueOrZero(a.CrowdLevel),
		valueOrZero(a.RecommendedStay),
		valueOrZero(a.BestSeason),
		valueOrZero(a.Transit),
		valueOrZero(a.Accessibility),
	}
}

type UserPreferences struct {
	Budget        int `json:"budget" validate:"min=0,max=100"`
	Crowds        int `json:"crowds" validate:"min=0,max=100"`
	TripLength    int `json:"trip_length" validate:"min=0,max=100"`
	Season        int `json:"season" validate:"min=0,max=100"`
	Transit       int `json:"transit" validate:"min=0,max=100"`
	Accessibility int `json:"accessibility" validate:"min=0,max=100"`
}

// DefaultPreferences puts every slider in the middle.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Budget:        50,
		Crowds:        50,
		TripLength:    50,
		Season:        50,
		Transit:       50,
		Accessibility: 50,
	}
}

// Values returns the six targets in the same order as PlaceAttributes.Values.
func (p UserPreferences) Values() [6]float64 {
	return [6]float64{
		float64(p.Budget),
		float64(p.Crowds),
		float64(p.TripLength),
		float64(p.Season),
		float64(p.Transit),
		float64(p.Accessibility),
	}
}

type SortOrder string

const (
	SortMatch    SortOrder = "match"
	SortPopular  SortOrder = "popular"
	SortCostLow  SortOrder = "cost-low"
	SortCostHigh SortOrder = "cost-high"
)

// ParseSortOrder falls back to SortMatch for empty or unknown input.
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortPopular, SortCostLow, SortCostHigh:
		return o
	default:
		return SortMatch
	}
}

type FilterState struct {
	Search      string      `json:"search"`
	ActiveTypes []PlaceType `json:"active_types"`
	SelectedTag string      `json:"selected_tag"`
	SortOrder   SortOrder   `json:"sort_order"`
}

// Reset clears every filter ("clear all").
func (f *FilterState) Reset() {
	*f = FilterState{SortOrder: SortMatch}
}

type AttributeMatches struct {
	Budget        float64 `json:"budget"`
	Crowds        float64 `json:"crowds"`
	TripLength    float64 `json:"trip_length"`
	Season        float64 `json:"season"`
	Transit       float64 `json:"transit"`
	Accessibility float64 `json:"accessibility"`
}

type MatchScoreResult struct {
	MatchScore       float64          `json:"match_score"`
	AttributeMatches AttributeMatches `json:"attribute_matches"`
}

type ScoredPlace struct {
	Place Place            `json:"place"`
	Score MatchScoreResult `json:"score"`
}
