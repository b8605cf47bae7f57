package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenlens/internal/models"
)

func day(n int) time.Time {
	return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func fixture() []models.Image {
	return []models.Image{
		{Name: "Wheat Harvest", Description: "Golden wheat ready for harvest", Category: models.CategoryCrops, Location: "Main Field", CreatedAt: day(0)},
		{Name: "Pink Garden Rose", Description: "Rose blooming in morning light", Category: models.CategoryFlowers, Location: "Home Garden", CreatedAt: day(1)},
		{Name: "Corn Field", Description: "Tall corn stalks near the wheat rows", Category: models.CategoryCrops, Location: "South Field", CreatedAt: day(2)},
		{Name: "Mountain Dawn", Description: "Misty mountains at dawn", Category: models.CategoryNature, Location: "Valley View", CreatedAt: day(3)},
		{Name: "Barley Plot", Description: "Test plot of spring barley", Category: models.CategoryCrops, Location: "Wheatfield Lane", CreatedAt: day(4)},
	}
}

func TestRefineCategoryFilter(t *testing.T) {
	out := Refine(fixture(), Query{Category: models.CategoryCrops})
	require.Len(t, out, 3)
	for _, img := range out {
		assert.Equal(t, models.CategoryCrops, img.Category)
	}

	assert.Len(t, Refine(fixture(), Query{Category: CategoryAll}), 5)
	assert.Len(t, Refine(fixture(), Query{}), 5)
}

func TestRefineSearchMatchesAnyField(t *testing.T) {
	out := Refine(fixture(), Query{Search: "  WHEAT "})
	require.NotEmpty(t, out)
	for _, img := range out {
		hit := strings.Contains(strings.ToLower(img.Name), "wheat") ||
			strings.Contains(strings.ToLower(img.Description), "wheat") ||
			strings.Contains(strings.ToLower(img.Location), "wheat")
		assert.True(t, hit, "record %q does not contain the query", img.Name)
	}
	// name hit, description hit, and location hit respectively
	assert.Len(t, out, 3)
}

func TestRefineSortProperties(t *testing.T) {
	newest := Refine(fixture(), Query{Sort: SortNewest})
	for i := 1; i < len(newest); i++ {
		assert.False(t, newest[i-1].CreatedAt.Before(newest[i].CreatedAt),
			"newest order violated at %d", i)
	}

	oldest := Refine(fixture(), Query{Sort: SortOldest})
	for i := 1; i < len(oldest); i++ {
		assert.False(t, oldest[i-1].CreatedAt.After(oldest[i].CreatedAt),
			"oldest order violated at %d", i)
	}

	byName := Refine(fixture(), Query{Sort: SortName})
	for i := 1; i < len(byName); i++ {
		assert.LessOrEqual(t, strings.ToLower(byName[i-1].Name), strings.ToLower(byName[i].Name),
			"name order violated at %d", i)
	}
}

func TestRefineCropsWheatByName(t *testing.T) {
	out := Refine(fixture(), Query{Category: models.CategoryCrops, Search: "wheat", Sort: SortName})

	require.Len(t, out, 3)
	assert.Equal(t, "Barley Plot", out[0].Name)
	assert.Equal(t, "Corn Field", out[1].Name)
	assert.Equal(t, "Wheat Harvest", out[2].Name)
	for _, img := range out {
		assert.Equal(t, models.CategoryCrops, img.Category)
	}
}

func TestRefineIdempotent(t *testing.T) {
	q := Query{Category: models.CategoryCrops, Search: "wheat", Sort: SortName}
	once := Refine(fixture(), q)
	twice := Refine(once, q)
	assert.Equal(t, once, twice)
}

func TestRefineDoesNotMutateInput(t *testing.T) {
	records := fixture()
	snapshot := fixture()

	Refine(records, Query{Sort: SortName})
	Refine(records, Query{Sort: SortOldest, Search: "wheat"})

	assert.Equal(t, snapshot, records)
}

func TestRefineStableForEqualKeys(t *testing.T) {
	same := day(0)
	records := []models.Image{
		{Name: "A", Description: "first", Category: models.CategoryNature, CreatedAt: same},
		{Name: "B", Description: "second", Category: models.CategoryNature, CreatedAt: same},
		{Name: "C", Description: "third", Category: models.CategoryNature, CreatedAt: same},
	}

	out := Refine(records, Query{Sort: SortNewest})
	require.Len(t, out, 3)
	assert.Equal(t, "A", out[0].Name)
	assert.Equal(t, "B", out[1].Name)
	assert.Equal(t, "C", out[2].Name)
}
