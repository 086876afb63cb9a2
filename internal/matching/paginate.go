package matching

import (
	"sort"

	"github.com/denisok6893-rgb/place-matching/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Paginate returns the window [offset, offset+limit) of items. A non-positive
// limit means DefaultPageSize; limits above MaxPageSize are capped.
func Paginate[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TopTags counts tag occurrences across places, most frequent first, ties by
// tag name. n <= 0 returns every tag.
func TopTags(places []domain.Place, n int) []TagCount {
	counts := make(map[string]int)
	for _, p := range places {
		for _, t := range p.Tags {
			if t == "" {
				continue
			}
			counts[t]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
