package httpapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/denisok6893-rgb/place-matching/internal/domain"
	"github.com/denisok6893-rgb/place-matching/internal/storage"
)

// PlaceRepository is the data-access collaborator behind the API. List may
// pre-filter by type; the matching pipeline re-applies every filter anyway.
type PlaceRepository interface {
	List(ctx context.Context, types []domain.PlaceType) ([]domain.Place, error)
	Get(ctx context.Context, id string) (domain.Place, error)
	Create(ctx context.Context, p domain.Place) (domain.Place, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// MemoryPlacesRepo keeps places in insertion order.
type MemoryPlacesRepo struct {
	mu     sync.RWMutex
	places []domain.Place
}

func NewMemoryPlacesRepo(places []domain.Place) *MemoryPlacesRepo {
	return &MemoryPlacesRepo{places: append([]domain.Place(nil), places...)}
}

func (r *MemoryPlacesRepo) List(_ context.Context, types []domain.PlaceType) ([]domain.Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(types) == 0 {
		return append([]domain.Place(nil), r.places...), nil
	}
	out := make([]domain.Place, 0, len(r.places))
	for _, p := range r.places {
		for _, t := range types {
			if p.Type == t {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (r *MemoryPlacesRepo) Get(_ context.Context, id string) (domain.Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.places {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Place{}, storage.ErrNotFound
}

func (r *MemoryPlacesRepo) Create(_ context.Context, p domain.Place) (domain.Place, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for _, existing := range r.places {
		if existing.ID == p.ID {
			return domain.Place{}, fmt.Errorf("%w: duplicate id %q", storage.ErrInvalidPlace, p.ID)
		}
	}
	r.places = append(r.places, p)
	return p, nil
}

func (r *MemoryPlacesRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.places {
		if p.ID == id {
			r.places = append(r.places[:i], r.places[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type SQLitePlacesRepo struct {
	Store *storage.SQLiteStore
}

func (r *SQLitePlacesRepo) List(ctx context.Context, types []domain.PlaceType) ([]domain.Place, error) {
	return r.Store.ListPlacesFiltered(ctx, storage.PlaceQuery{Types: types})
}

func (r *SQLitePlacesRepo) Get(ctx context.Context, id string) (domain.Place, error) {
	return r.Store.GetPlace(ctx, id)
}

// Create relies on the primary key; a duplicate ID is storage.ErrInvalidPlace.
func (r *SQLitePlacesRepo) Create(ctx context.Context, p domain.Place) (domain.Place, error) {
	return r.Store.CreatePlace(ctx, p)
}

func (r *SQLitePlacesRepo) Delete(ctx context.Context, id string) (bool, error) {
	return r.Store.DeletePlace(ctx, id)
}

var (
	_ PlaceRepository = (*MemoryPlacesRepo)(nil)
	_ PlaceRepository = (*SQLitePlacesRepo)(nil)
)
