package storage

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gosimple/slug"

	"github.com/denisok6893-rgb/place-matching/internal/domain"
)

var (
	ErrNotFound     = errors.New("place not found")
	ErrInvalidPlace = errors.New("invalid place")
)

// LoadPlacesFromFile reads a JSON array of places and normalizes every record.
func LoadPlacesFromFile(path string) ([]domain.Place, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read places file: %w", err)
	}

	var places []domain.Place
	if err := json.Unmarshal(b, &places); err != nil {
		return nil, fmt.Errorf("unmarshal places: %w", err)
	}

	seen := make(map[string]int, len(places))
	for i := range places {
		p, err := NormalizePlace(places[i])
		if err != nil {
			return nil, fmt.Errorf("place #%d: %w", i, err)
		}
		if prev, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("place #%d: %w: duplicate id %q (first at #%d)", i, ErrInvalidPlace, p.ID, prev)
		}
		seen[p.ID] = i
		places[i] = p
	}
	return places, nil
}

// NormalizePlace validates a record at the data-access boundary: name is
// required, type must be known, tags are never nil and blank tags are
// dropped. A missing ID is derived from name and country.
// Scalar attributes are left as given; missing ones stay nil.
func NormalizePlace(p domain.Place) (domain.Place, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, fmt.Errorf("%w: name is required", ErrInvalidPlace)
	}
	p.Country = strings.TrimSpace(p.Country)

	t, err := domain.ParsePlaceType(string(p.Type))
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPlace, err)
	}
	p.Type = t

	tags := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	p.Tags = tags

	if p.Population < 0 {
		return p, fmt.Errorf("%w: population must be >= 0", ErrInvalidPlace)
	}

	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = slug.Make(strings.TrimSpace(p.Name + " " + p.Country))
	}
	return p, nil
}
