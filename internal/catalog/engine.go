// Package catalog derives the display-ready subset of the published
// collection from filter, search, and sort parameters. Pure, no I/O.
package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"greenlens/internal/models"
)

type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
	SortName   Sort = "name"
)

// CategoryAll is the query-side wildcard; it is never persisted.
const CategoryAll models.Category = "all"

// Query is the caller-held filter state applied to a record collection.
type Query struct {
	Category models.Category // empty or "all" keeps every category
	Search   string
	Sort     Sort
}

// Refine filters and orders records. The input slice is never mutated, the
// sort is stable, and repeated calls with equal arguments yield equal
// results.
func Refine(records []models.Image, q Query) []models.Image {
	out := make([]models.Image, 0, len(records))

	search := strings.ToLower(strings.TrimSpace(q.Search))
	for _, img := range records {
		if q.Category != "" && q.Category != CategoryAll && img.Category != q.Category {
			continue
		}
		if search != "" && !matches(img, search) {
			continue
		}
		out = append(out, img)
	}

	switch q.Sort {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	case SortName:
		c := collate.New(language.English)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Name, out[j].Name) < 0
		})
	default: // SortNewest
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}

	return out
}

func matches(img models.Image, search string) bool {
	return strings.Contains(strings.ToLower(img.Name), search) ||
		strings.Contains(strings.ToLower(img.Description), search) ||
		(img.Location != "" && strings.Contains(strings.ToLower(img.Location), search))
}
