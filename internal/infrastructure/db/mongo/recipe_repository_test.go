package mongo

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

func TestBuildListFilter_AlwaysRequiresListed(t *testing.T) {
	f := BuildListFilter(ports.RecipeFilter{})
	assert.Equal(t, bson.M{"is_approved": true, "is_published": true}, f)

	f = BuildListFilter(ports.RecipeFilter{Category: domain.CategoryAll})
	assert.NotContains(t, f, "category")
}

func TestBuildListFilter_CombinesConditions(t *testing.T) {
	f := BuildListFilter(ports.RecipeFilter{
		Category:    "dinner",
		DietaryTags: []string{"vegan", "keto"},
		Difficulty:  "Easy",
		Author:      "author-1",
		Search:      "  mac (and) cheese ",
	})

	assert.Equal(t, "dinner", f["category"])
	assert.Equal(t, bson.M{"$in": []string{"vegan", "keto"}}, f["dietary_tags"])
	assert.Equal(t, "Easy", f["difficulty"])
	assert.Equal(t, "author-1", f["author"])
	assert.Equal(t, true, f["is_approved"])

	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 4)

	want := primitive.Regex{Pattern: `mac \(and\) cheese`, Options: "i"}
	fields := []string{"title", "description", "ingredients.name", "tags"}
	for i, field := range fields {
		clause := or[i].(bson.M)
		assert.Equal(t, want, clause[field], field)
	}
}

func TestBuildSort(t *testing.T) {
	assert.Equal(t,
		bson.D{{Key: "average_rating", Value: -1}, {Key: "_id", Value: -1}},
		BuildSort("averageRating", true))
	assert.Equal(t,
		bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}},
		BuildSort("title", false))
	assert.Equal(t,
		bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
		BuildSort("password", true))
}

func TestPageSkip(t *testing.T) {
	cases := []struct {
		name        string
		page, limit int
		total       int64
		skip        int64
		ok          bool
	}{
		{"first page", 1, 12, 30, 0, true},
		{"last partial page", 3, 12, 30, 24, true},
		{"past the end", 4, 12, 30, 0, false},
		{"empty collection", 1, 12, 0, 0, false},
		{"huge page", math.MaxInt, 100, 30, 0, false},
		{"page that overflows the offset", 92233720368547759, 100, 30, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			skip, ok := PageSkip(tc.page, tc.limit, tc.total)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.skip, skip)
			assert.GreaterOrEqual(t, skip, int64(0))
		})
	}
}

// memDoc emulates a single versioned document.
type memDoc struct {
	recipe domain.Recipe
	// interfere makes the next n swaps lose against a concurrent writer.
	interfere int
}

func (m *memDoc) load(context.Context) (*domain.Recipe, error) {
	r := m.recipe
	r.Ratings = append([]domain.Rating(nil), m.recipe.Ratings...)
	r.Likes = append([]string(nil), m.recipe.Likes...)
	return &r, nil
}

func (m *memDoc) swap(_ context.Context, expected int64, next *domain.Recipe) (bool, error) {
	if m.interfere > 0 {
		m.interfere--
		m.recipe.Version++
		m.recipe.Likes = append(m.recipe.Likes, "racer")
	}
	if m.recipe.Version != expected {
		return false, nil
	}
	m.recipe = *next
	return true, nil
}

var testNow = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestMutateWithRetry_AppliesAndBumpsVersion(t *testing.T) {
	doc := &memDoc{recipe: domain.Recipe{ID: "r1", Version: 3, PrepTime: 5, CookingTime: 10}}

	out, err := mutateWithRetry(context.Background(), 3, doc.load, doc.swap, func(r *domain.Recipe) error {
		return r.ApplyRating("u1", 4, "", testNow())
	}, testNow)

	require.NoError(t, err)
	assert.Equal(t, int64(4), out.Version)
	assert.Equal(t, 15, out.TotalTime)
	assert.Equal(t, 4.0, out.AverageRating)
	assert.Equal(t, "r1", doc.recipe.ID)
	assert.Equal(t, 1, doc.recipe.TotalRatings)
}

func TestMutateWithRetry_ReappliesAfterLostRace(t *testing.T) {
	doc := &memDoc{recipe: domain.Recipe{ID: "r1", Version: 1}, interfere: 2}
	var calls int32

	out, err := mutateWithRetry(context.Background(), 5, doc.load, doc.swap, func(r *domain.Recipe) error {
		atomic.AddInt32(&calls, 1)
		r.ToggleLike("u1")
		return nil
	}, testNow)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls)
	// the concurrent like survives and duplicates collapse
	assert.Equal(t, []string{"racer", "u1"}, out.Likes)
	assert.Equal(t, int64(4), out.Version)
}

func TestMutateWithRetry_ConflictWhenAttemptsExhausted(t *testing.T) {
	doc := &memDoc{recipe: domain.Recipe{ID: "r1", Version: 1}, interfere: 10}

	_, err := mutateWithRetry(context.Background(), 3, doc.load, doc.swap, func(r *domain.Recipe) error {
		return nil
	}, testNow)

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestMutateWithRetry_MutationErrorAbortsWrite(t *testing.T) {
	doc := &memDoc{recipe: domain.Recipe{ID: "r1", Version: 1}}

	_, err := mutateWithRetry(context.Background(), 3, doc.load, doc.swap, func(r *domain.Recipe) error {
		return domain.ErrForbidden
	}, testNow)

	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Equal(t, int64(1), doc.recipe.Version)
}

func TestReplaceFields_OmitsIDAndViews(t *testing.T) {
	set, err := replaceFields(&domain.Recipe{ID: "r1", Title: "Soup", Views: 99, Version: 2})
	require.NoError(t, err)

	assert.NotContains(t, set, "_id")
	assert.NotContains(t, set, "views")
	assert.Equal(t, "Soup", set["title"])
	assert.EqualValues(t, 2, set["version"])
}
