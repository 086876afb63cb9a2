package matching

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// Weights defines the relative importance of each preference dimension.
type Weights struct {
	Budget        float64 `json:"budget"`
	Crowds        float64 `json:"crowds"`
	TripLength    float64 `json:"trip_length"`
	Season        float64 `json:"season"`
	Transit       float64 `json:"transit"`
	Accessibility float64 `json:"accessibility"`
}

// DefaultWeights sum to factorCount, so equal matches average to themselves.
func DefaultWeights() Weights {
	return Weights{
		Budget:        1.2,
		Crowds:        1.0,
		TripLength:    0.8,
		Season:        1.1,
		Transit:       1.0,
		Accessibility: 0.9,
	}
}

func (w Weights) values() [factorCount]float64 {
	return [factorCount]float64{w.Budget, w.Crowds, w.TripLength, w.Season, w.Transit, w.Accessibility}
}

// Sum is the total of all six weights.
func (w Weights) Sum() float64 {
	var s float64
	for _, v := range w.values() {
		s += v
	}
	return s
}

// LoadWeightsFromFile loads weights from a JSON file. Fields absent from the
// file keep their default value; on error the defaults are returned with it.
func LoadWeightsFromFile(path string) (Weights, error) {
	w := DefaultWeights()
	b, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read weights file: %w", err)
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return DefaultWeights(), fmt.Errorf("unmarshal weights: %w", err)
	}
	return w, nil
}
