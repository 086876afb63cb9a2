package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/place-matching/internal/domain"
	"github.com/denisok6893-rgb/place-matching/internal/matching"
	"github.com/denisok6893-rgb/place-matching/internal/metrics"
	"github.com/denisok6893-rgb/place-matching/internal/storage"
)

// ResponseCache stores encoded /places pages per generation. Invalidate
// starts a new generation. cache.MemoryStore and cache.ValkeyStore both
// satisfy it.
type ResponseCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, key string) ([]byte, bool, error)
	Set(ctx context.Context, gen int64, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type Server struct {
	Engine   *matching.Engine
	Places   PlaceRepository
	Cache    ResponseCache
	CacheTTL time.Duration
	Log      zerolog.Logger
}

var validate = validator.New()

func NewServer(engine *matching.Engine, places PlaceRepository, log zerolog.Logger) *Server {
	return &Server{Engine: engine, Places: places, Log: log}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	r.Post("/match", s.handleMatch)
	r.Get("/tags", s.handleTags)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/places", func(r chi.Router) {
		r.Get("/", s.handlePlacesList)
		r.Post("/", s.handlePlaceCreate)
		r.Get("/{id}", s.handlePlaceGet)
		r.Delete("/{id}", s.handlePlaceDelete)
	})
	return r
}

// instrument records per-route metrics and a debug access log line.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		metrics.APIRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		s.Log.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type MatchRequest struct {
	Attributes  domain.PlaceAttributes  `json:"attributes"`
	Preferences *domain.UserPreferences `json:"preferences"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	prefs := domain.DefaultPreferences()
	if req.Preferences != nil {
		prefs = *req.Preferences
	}
	if err := validate.Struct(prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_preferences", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.Engine.ComputeMatch(req.Attributes, prefs))
}

type PlacesListResponse struct {
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
	Total  int                  `json:"total"`
	Items  []domain.ScoredPlace `json:"items"`
}

func (s *Server) handlePlacesList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	fs, err := parseFilterState(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	prefs, err := parsePreferences(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_preferences", err.Error())
		return
	}
	limit, offset := parseLimitOffset(r, matching.DefaultPageSize, 0)

	ctx := r.Context()
	key := cacheKey(q)
	// The generation is taken before reading places so a page built from a
	// snapshot that a concurrent write invalidates is stored under the old
	// generation.
	gen, cacheable := s.pageGeneration(ctx)
	if cacheable {
		if b, ok, err := s.Cache.Get(ctx, gen, key); err != nil {
			s.Log.Warn().Err(err).Msg("page cache get failed")
		} else if ok {
			metrics.CacheHits.WithLabelValues("page").Inc()
			writeRawJSON(w, http.StatusOK, b)
			return
		}
		metrics.CacheMisses.WithLabelValues("page").Inc()
	}

	places, err := s.Places.List(ctx, fs.ActiveTypes)
	if err != nil {
		s.Log.Error().Err(err).Msg("list places")
		writeError(w, http.StatusInternalServerError, "list_failed", "could not list places")
		return
	}

	ranked := s.Engine.FilterAndSort(places, fs, prefs)
	resp := PlacesListResponse{
		Limit:  limit,
		Offset: offset,
		Total:  len(ranked),
		Items:  matching.Paginate(ranked, limit, offset),
	}
	if resp.Offset > resp.Total {
		resp.Offset = resp.Total
	}

	b, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", "failed to encode response")
		return
	}
	if cacheable {
		if err := s.Cache.Set(ctx, gen, key, b, s.CacheTTL); err != nil {
			s.Log.Warn().Err(err).Msg("page cache set failed")
		}
	}
	writeRawJSON(w, http.StatusOK, b)
}

func (s *Server) handlePlaceGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.Places.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "place not found")
		return
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("get place")
		writeError(w, http.StatusInternalServerError, "get_failed", "could not load place")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type CreatePlaceRequest struct {
	ID            string                 `json:"id" validate:"omitempty,max=128"`
	Name          string                 `json:"name" validate:"required"`
	Country       string                 `json:"country"`
	Type          string                 `json:"type" validate:"required,oneof=country region city neighborhood sight"`
	Tags          []string               `json:"tags"`
	Description   string                 `json:"description"`
	Attributes    domain.PlaceAttributes `json:"attributes"`
	AverageRating float64                `json:"average_rating" validate:"min=0,max=5"`
	Population    int64                  `json:"population" validate:"min=0"`
}

func (s *Server) handlePlaceCreate(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_place", err.Error())
		return
	}

	p, err := storage.NormalizePlace(domain.Place{
		ID:            req.ID,
		Name:          req.Name,
		Country:       req.Country,
		Type:          domain.PlaceType(req.Type),
		Tags:          req.Tags,
		Description:   req.Description,
		Attributes:    req.Attributes,
		AverageRating: req.AverageRating,
		Population:    req.Population,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_place", err.Error())
		return
	}
	if req.ID == "" {
		// Slugs are for seed data; API-created places get an opaque ID.
		p.ID = ""
	}

	created, err := s.Places.Create(r.Context(), p)
	if errors.Is(err, storage.ErrInvalidPlace) {
		writeError(w, http.StatusConflict, "conflict", err.Error())
		return
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("create place")
		writeError(w, http.StatusInternalServerError, "create_failed", "could not create place")
		return
	}

	s.invalidate(r.Context())
	s.Log.Info().Str("place_id", created.ID).Msg("place created")
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handlePlaceDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := s.Places.Delete(r.Context(), id)
	if err != nil {
		s.Log.Error().Err(err).Msg("delete place")
		writeError(w, http.StatusInternalServerError, "delete_failed", "could not delete place")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "place not found")
		return
	}

	s.invalidate(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	n := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			n = parsed
		}
	}
	places, err := s.Places.List(r.Context(), nil)
	if err != nil {
		s.Log.Error().Err(err).Msg("list places")
		writeError(w, http.StatusInternalServerError, "list_failed", "could not list places")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": matching.TopTags(places, n)})
}

func (s *Server) pageGeneration(ctx context.Context) (int64, bool) {
	if s.Cache == nil {
		return 0, false
	}
	gen, err := s.Cache.Generation(ctx)
	if err != nil {
		s.Log.Warn().Err(err).Msg("page cache generation failed")
		return 0, false
	}
	return gen, true
}

func (s *Server) invalidate(ctx context.Context) {
	s.Engine.InvalidateMemo()
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		s.Log.Warn().Err(err).Msg("page cache invalidate failed")
	}
}

func parseFilterState(q url.Values) (domain.FilterState, error) {
	fs := domain.FilterState{
		Search:      q.Get("search"),
		SelectedTag: q.Get("tag"),
		SortOrder:   domain.ParseSortOrder(q.Get("sort")),
	}
	for _, raw := range q["type"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			t, err := domain.ParsePlaceType(part)
			if err != nil {
				return fs, err
			}
			fs.ActiveTypes = append(fs.ActiveTypes, t)
		}
	}
	return fs, nil
}

func parsePreferences(q url.Values) (domain.UserPreferences, error) {
	p := domain.DefaultPreferences()
	fields := []struct {
		name string
		dst  *int
	}{
		{"budget", &p.Budget},
		{"crowds", &p.Crowds},
		{"trip_length", &p.TripLength},
		{"season", &p.Season},
		{"transit", &p.Transit},
		{"accessibility", &p.Accessibility},
	}
	for _, f := range fields {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, errors.New(f.name + " must be an integer")
		}
		*f.dst = n
	}
	if err := validate.Struct(p); err != nil {
		return p, err
	}
	return p, nil
}

// cacheKey is the canonical (sorted) query string.
func cacheKey(q url.Values) string {
	return "places?" + q.Encode()
}

func parseLimitOffset(r *http.Request, defLimit, defOffset int) (int, int) {
	q := r.URL.Query()

	limit := defLimit
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = defLimit
	}
	if limit > matching.MaxPageSize {
		limit = matching.MaxPageSize
	}

	offset := defOffset
	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = defOffset
	}

	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeRawJSON(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
