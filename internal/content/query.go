// Package content implements the content-library query engine: composable
// filter predicates, a stable ordering and an opaque keyset cursor.
package content

import (
	"slices"
	"strings"

	"github.com/gichigi/choir/internal/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Normalize trims the filters, de-duplicates tags and clamps the limit.
func Normalize(q models.ContentQuery) models.ContentQuery {
	q.SearchQuery = strings.TrimSpace(q.SearchQuery)
	q.Type = strings.TrimSpace(q.Type)
	q.Tags = NormalizeTags(q.Tags)
	q.Cursor = strings.TrimSpace(q.Cursor)
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// Predicate reports whether an item passes a filter.
type Predicate func(item *models.ContentItem) bool

// ByAccount keeps the items owned by accountID.
func ByAccount(accountID string) Predicate {
	return func(item *models.ContentItem) bool {
		return item.AccountID == accountID
	}
}

// ByType keeps items whose type matches exactly. An empty type passes everything.
func ByType(contentType string) Predicate {
	if contentType == "" {
		return pass
	}
	return func(item *models.ContentItem) bool {
		return item.Type == contentType
	}
}

// ByTags keeps items sharing at least one tag with tags. No tags passes everything.
func ByTags(tags []string) Predicate {
	if len(tags) == 0 {
		return pass
	}
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}
	return func(item *models.ContentItem) bool {
		for _, t := range item.Tags {
			if _, ok := want[t]; ok {
				return true
			}
		}
		return false
	}
}

// BySearch keeps items whose title or body contains term, ignoring case.
func BySearch(term string) Predicate {
	if term == "" {
		return pass
	}
	needle := strings.ToLower(term)
	return func(item *models.ContentItem) bool {
		return strings.Contains(strings.ToLower(item.Title), needle) ||
			strings.Contains(strings.ToLower(item.Body), needle)
	}
}

// All folds predicates with logical AND.
func All(preds ...Predicate) Predicate {
	return func(item *models.ContentItem) bool {
		for _, p := range preds {
			if !p(item) {
				return false
			}
		}
		return true
	}
}

// Filter builds the combined predicate for q.
func Filter(q models.ContentQuery) Predicate {
	return All(ByAccount(q.AccountID), ByType(q.Type), ByTags(q.Tags), BySearch(q.SearchQuery))
}

func pass(*models.ContentItem) bool { return true }

// NormalizeTags trims tags, drops empties and duplicates, and keeps first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Facets collects the distinct types and tags across items, sorted.
func Facets(items []models.ContentItem) models.ContentFacets {
	types := map[string]struct{}{}
	tags := map[string]struct{}{}
	for i := range items {
		types[items[i].Type] = struct{}{}
		for _, t := range items[i].Tags {
			tags[t] = struct{}{}
		}
	}
	return models.ContentFacets{Types: sortedKeys(types), Tags: sortedKeys(tags)}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
