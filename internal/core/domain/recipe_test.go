package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

func TestPrepareForPersist_DerivedFields(t *testing.T) {
	r := Recipe{
		PrepTime:    15,
		CookingTime: 30,
		IsPublished: true,
		Ratings: []Rating{
			{User: "u1", Rating: 5},
			{User: "u2", Rating: 3},
			{User: "u3", Rating: 4},
		},
		Likes: []string{"u1", "u2", "u1"},
		Tags:  []string{" Pasta ", "QUICK", ""},
	}

	out := PrepareForPersist(r, fixedNow)

	assert.Equal(t, 45, out.TotalTime)
	assert.Equal(t, 4.0, out.AverageRating)
	assert.Equal(t, 3, out.TotalRatings)
	assert.Equal(t, []string{"u1", "u2"}, out.Likes)
	assert.Equal(t, []string{"pasta", "quick"}, out.Tags)
	assert.Equal(t, fixedNow, out.LastModified)
	assert.Equal(t, fixedNow, out.CreatedAt)
	require.NotNil(t, out.PublishedAt)
	assert.Equal(t, fixedNow, *out.PublishedAt)

	// input is left untouched
	assert.Equal(t, 0, r.TotalTime)
	assert.Equal(t, []string{"u1", "u2", "u1"}, r.Likes)
}

func TestPrepareForPersist_KeepsExistingTimestamps(t *testing.T) {
	created := fixedNow.Add(-48 * time.Hour)
	published := fixedNow.Add(-24 * time.Hour)
	r := Recipe{CreatedAt: created, PublishedAt: &published, IsPublished: true}

	out := PrepareForPersist(r, fixedNow)

	assert.Equal(t, created, out.CreatedAt)
	assert.Equal(t, published, *out.PublishedAt)
	assert.Equal(t, fixedNow, out.UpdatedAt)
}

func TestPrepareForPersist_UnpublishedHasNoPublishedAt(t *testing.T) {
	out := PrepareForPersist(Recipe{}, fixedNow)
	assert.Nil(t, out.PublishedAt)
	assert.Equal(t, 0.0, out.AverageRating)
	assert.Equal(t, 0, out.TotalRatings)
	assert.NotNil(t, out.Ratings)
	assert.NotNil(t, out.Images)
}

func TestPrepareForPersist_RoundsHalfAwayFromZero(t *testing.T) {
	// mean 4.25 -> 4.3, mean 3.75 -> 3.8
	cases := []struct {
		scores []int
		want   float64
	}{
		{[]int{5, 4, 4, 4}, 4.3},
		{[]int{4, 4, 4, 3}, 3.8},
		{[]int{1, 2}, 1.5},
		{[]int{5, 5, 4}, 4.7},
	}
	for _, tc := range cases {
		var ratings []Rating
		for i, s := range tc.scores {
			ratings = append(ratings, Rating{User: string(rune('a' + i)), Rating: s})
		}
		out := PrepareForPersist(Recipe{Ratings: ratings}, fixedNow)
		assert.Equal(t, tc.want, out.AverageRating, "scores %v", tc.scores)
	}
}

func TestApplyRating_ReplacesExistingRater(t *testing.T) {
	r := &Recipe{}
	require.NoError(t, r.ApplyRating("u1", 2, "meh", fixedNow))
	require.NoError(t, r.ApplyRating("u2", 4, "", fixedNow))
	require.NoError(t, r.ApplyRating("u1", 5, "  great now  ", fixedNow.Add(time.Minute)))

	require.Len(t, r.Ratings, 2)
	assert.Equal(t, "u1", r.Ratings[0].User)
	assert.Equal(t, 5, r.Ratings[0].Rating)
	assert.Equal(t, "great now", r.Ratings[0].Review)
	assert.Equal(t, fixedNow.Add(time.Minute), r.Ratings[0].CreatedAt)

	out := PrepareForPersist(*r, fixedNow)
	assert.Equal(t, 2, out.TotalRatings)
	assert.Equal(t, 4.5, out.AverageRating)
}

func TestApplyRating_RejectsOutOfRange(t *testing.T) {
	r := &Recipe{}
	for _, v := range []int{0, 6, -1} {
		err := r.ApplyRating("u1", v, "", fixedNow)
		assert.True(t, errors.Is(err, ErrValidation), "rating %d", v)
	}
	assert.Empty(t, r.Ratings)
}

func TestToggleLike_TwiceRestoresMembership(t *testing.T) {
	r := &Recipe{Likes: []string{"a"}}

	assert.True(t, r.ToggleLike("b"))
	assert.True(t, r.IsLikedBy("b"))
	assert.False(t, r.ToggleLike("b"))
	assert.False(t, r.IsLikedBy("b"))
	assert.Equal(t, []string{"a"}, r.Likes)
}

func TestRecipe_Permissions(t *testing.T) {
	r := &Recipe{Author: "author-1", IsApproved: true, IsPublished: false}

	assert.True(t, r.CanModify("author-1", RoleUser))
	assert.True(t, r.CanModify("someone", RoleAdmin))
	assert.False(t, r.CanModify("someone", RoleUser))
	assert.False(t, r.CanModify("", RoleUser))

	assert.False(t, r.IsListed())
	assert.True(t, r.VisibleTo("author-1", RoleUser))
	assert.False(t, r.VisibleTo("", ""))

	r.IsPublished = true
	assert.True(t, r.VisibleTo("", ""))
}

func validRecipe() Recipe {
	return Recipe{
		Title:        "Tomato Soup",
		Description:  "Simple and warm.",
		Category:     "lunch",
		Cuisine:      "italian",
		DietaryTags:  []string{"vegan"},
		Ingredients:  []Ingredient{{Name: "Tomato", Quantity: 4, Unit: "pieces"}},
		Instructions: []Instruction{{StepNumber: 1, Description: "Simmer."}},
		PrepTime:     10,
		CookingTime:  20,
		Difficulty:   "Easy",
		Servings:     2,
		Images:       []string{"https://cdn.example.com/soup.jpg"},
	}
}

func TestRecipe_Validate(t *testing.T) {
	r := validRecipe()
	require.NoError(t, r.Validate())

	bad := validRecipe()
	bad.Title = "ab"
	bad.Category = "brunch"
	bad.Ingredients[0].Quantity = 0
	bad.Difficulty = "Insane"
	bad.Servings = 0
	bad.Images = []string{"ftp://example.com/x.png"}

	err := bad.Validate()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"title", "category", "ingredients[0].quantity", "difficulty", "servings", "images"}, fields)
}
