package matching

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/place-matching/internal/cache"
	"github.com/denisok6893-rgb/place-matching/internal/domain"
	"github.com/denisok6893-rgb/place-matching/internal/logging"
	"github.com/denisok6893-rgb/place-matching/internal/metrics"
)

// factorCount is the divisor of the weighted average.
const factorCount = 6

type Engine struct {
	weights Weights
	log     zerolog.Logger
	memo    *cache.LRU[domain.MatchScoreResult]
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMemo memoizes scores by place ID, attribute values and preferences, so
// a place whose attributes change never hits an old entry.
func WithMemo(c *cache.LRU[domain.MatchScoreResult]) Option {
	return func(e *Engine) { e.memo = c }
}

func NewEngine(w Weights, opts ...Option) *Engine {
	e := &Engine{weights: w, log: logging.Logger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Weights() Weights { return e.weights }

// InvalidateMemo drops memoized scores, if memoization is enabled. It only
// frees memory; stale entries cannot be served.
func (e *Engine) InvalidateMemo() {
	if e.memo != nil {
		e.memo.Purge()
	}
}

// ComputeMatch scores place attributes against preferences with the default
// weights.
func ComputeMatch(attrs domain.PlaceAttributes, prefs domain.UserPreferences) domain.MatchScoreResult {
	return computeMatch(DefaultWeights(), attrs.Values(), prefs)
}

// ComputeMatch scores attributes with the engine's weights. Missing
// attributes count as 0 and are reported with a warning.
func (e *Engine) ComputeMatch(attrs domain.PlaceAttributes, prefs domain.UserPreferences) domain.MatchScoreResult {
	e.warnMissing("", attrs)
	return computeMatch(e.weights, attrs.Values(), prefs)
}

// FilterAndSort applies the type, tag and search filters in that order,
// scores every survivor and stably sorts by fs.SortOrder. The input slice is
// left untouched.
func FilterAndSort(places []domain.Place, fs domain.FilterState, prefs domain.UserPreferences) []domain.ScoredPlace {
	return NewEngine(DefaultWeights()).FilterAndSort(places, fs, prefs)
}

func (e *Engine) FilterAndSort(places []domain.Place, fs domain.FilterState, prefs domain.UserPreferences) []domain.ScoredPlace {
	order := domain.ParseSortOrder(string(fs.SortOrder))
	f := newFilter(fs)

	out := make([]domain.ScoredPlace, 0, len(places))
	for _, p := range places {
		if !f.admits(p) {
			continue
		}
		out = append(out, domain.ScoredPlace{Place: p, Score: e.scorePlace(p, prefs)})
	}

	sortScored(out, order)

	metrics.PipelineRuns.WithLabelValues(string(order)).Inc()
	metrics.PipelineCandidates.Observe(float64(len(out)))
	return out
}

func (e *Engine) scorePlace(p domain.Place, prefs domain.UserPreferences) domain.MatchScoreResult {
	var key string
	if e.memo != nil && p.ID != "" {
		key = memoKey(p, prefs)
		if res, ok := e.memo.Get(key); ok {
			metrics.CacheHits.WithLabelValues("score").Inc()
			return res
		}
		metrics.CacheMisses.WithLabelValues("score").Inc()
	}

	e.warnMissing(p.ID, p.Attributes)
	res := computeMatch(e.weights, p.Attributes.Values(), prefs)

	if key != "" {
		e.memo.Add(key, res)
	}
	return res
}

func (e *Engine) warnMissing(placeID string, attrs domain.PlaceAttributes) {
	missing := attrs.Missing()
	if len(missing) == 0 {
		return
	}
	metrics.MissingAttributes.Inc()
	e.log.Warn().
		Str("place_id", placeID).
		Strs("missing", missing).
		Msg("scoring with missing attributes as 0")
}

func computeMatch(w Weights, attrs [factorCount]float64, prefs domain.UserPreferences) domain.MatchScoreResult {
	targets := prefs.Values()
	weights := w.values()

	var m [factorCount]float64
	var sum float64
	for i := range m {
		// Not clamped: distances above 100 yield negative matches.
		m[i] = 100 - math.Abs(attrs[i]-targets[i])
		sum += m[i] * weights[i]
	}

	return domain.MatchScoreResult{
		MatchScore: sum / factorCount,
		AttributeMatches: domain.AttributeMatches{
			Budget:        m[0],
			Crowds:        m[1],
			TripLength:    m[2],
			Season:        m[3],
			Transit:       m[4],
			Accessibility: m[5],
		},
	}
}

type filter struct {
	types map[domain.PlaceType]struct{}
	tag   string
	query string
}

func newFilter(fs domain.FilterState) filter {
	f := filter{tag: fs.SelectedTag, query: strings.ToLower(fs.Search)}
	if len(fs.ActiveTypes) > 0 {
		f.types = make(map[domain.PlaceType]struct{}, len(fs.ActiveTypes))
		for _, t := range fs.ActiveTypes {
			f.types[t] = struct{}{}
		}
	}
	return f
}

func (f filter) admits(p domain.Place) bool {
	if f.types != nil {
		if _, ok := f.types[p.Type]; !ok {
			return false
		}
	}
	if f.tag != "" && !hasTag(p.Tags, f.tag) {
		return false
	}
	if f.query != "" && !matchesSearch(p, f.query) {
		return false
	}
	return true
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// matchesSearch expects an already lower-cased query.
func matchesSearch(p domain.Place, query string) bool {
	for _, field := range searchFields(p) {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func searchFields(p domain.Place) []string {
	fields := make([]string, 0, 4+len(p.Tags))
	fields = append(fields, p.Name, p.Country, p.Description, string(p.Type))
	return append(fields, p.Tags...)
}

func sortScored(items []domain.ScoredPlace, order domain.SortOrder) {
	var less func(a, b domain.ScoredPlace) bool
	switch order {
	case domain.SortPopular:
		less = func(a, b domain.ScoredPlace) bool {
			return a.Place.Attributes.CrowdLevelValue() > b.Place.Attributes.CrowdLevelValue()
		}
	case domain.SortCostLow:
		less = func(a, b domain.ScoredPlace) bool {
			return a.Place.Attributes.CostValue() < b.Place.Attributes.CostValue()
		}
	case domain.SortCostHigh:
		less = func(a, b domain.ScoredPlace) bool {
			return a.Place.Attributes.CostValue() > b.Place.Attributes.CostValue()
		}
	default:
		less = func(a, b domain.ScoredPlace) bool {
			return a.Score.MatchScore > b.Score.MatchScore
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

// memoKey is "id|attrs...|prefs...", with "-" for a missing attribute.
func memoKey(p domain.Place, prefs domain.UserPreferences) string {
	var b strings.Builder
	b.Grow(len(p.ID) + 64)
	b.WriteString(p.ID)
	a := p.Attributes
	for _, v := range []*float64{a.Cost, a.CrowdLevel, a.RecommendedStay, a.BestSeason, a.Transit, a.Accessibility} {
		b.WriteByte('|')
		if v == nil {
			b.WriteByte('-')
			continue
		}
		b.WriteString(strconv.FormatFloat(*v, 'g', -1, 64))
	}
	for _, v := range prefs.Values() {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(int(v)))
	}
	return b.String()
}
