package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWeekStart(t *testing.T) {
	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	cases := []time.Time{
		time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 13, 17, 45, 0, 0, time.UTC),
		time.Date(2024, 3, 17, 23, 59, 59, 0, time.UTC),
	}
	for _, c := range cases {
		assert.Equal(t, monday, NormalizeWeekStart(c), "input %s", c)
	}

	// Sunday evening in UTC-5 is already Monday in UTC.
	est := time.FixedZone("EST", -5*3600)
	got := NormalizeWeekStart(time.Date(2024, 3, 17, 21, 0, 0, 0, est))
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), got)
}

func TestMealPlan_SetSlotReplaces(t *testing.T) {
	p := NewMealPlan("u1", fixedNow)

	require.NoError(t, p.SetSlot("monday", "dinner", "r1"))
	require.NoError(t, p.SetSlot("tuesday", "lunch", "r2"))
	require.NoError(t, p.SetSlot("monday", "dinner", "r3"))

	require.Len(t, p.Entries, 2)
	assert.Equal(t, MealEntry{Day: "monday", Slot: "dinner", Recipe: "r3"}, p.Entries[0])
	assert.ElementsMatch(t, []string{"r3", "r2"}, p.RecipeIDs())
}

func TestMealPlan_InvalidCell(t *testing.T) {
	p := NewMealPlan("u1", fixedNow)

	err := p.SetSlot("funday", "brunch", "r1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)

	_, err = p.ClearSlot("monday", "tea")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestMealPlan_ClearSlot(t *testing.T) {
	p := NewMealPlan("u1", fixedNow)
	require.NoError(t, p.SetSlot("friday", "snack", "r1"))

	removed, err := p.ClearSlot("friday", "snack")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, p.Entries)

	removed, err = p.ClearSlot("friday", "snack")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMealPlan_ShoppingList(t *testing.T) {
	p := NewMealPlan("u1", fixedNow)
	require.NoError(t, p.SetSlot("monday", "dinner", "pasta"))
	require.NoError(t, p.SetSlot("tuesday", "dinner", "pasta"))
	require.NoError(t, p.SetSlot("wednesday", "lunch", "salad"))
	require.NoError(t, p.SetSlot("thursday", "lunch", "missing"))

	recipes := map[string]*Recipe{
		"pasta": {Ingredients: []Ingredient{
			{Name: "Tomato", Quantity: 2, Unit: "pieces"},
			{Name: "Spaghetti", Quantity: 200, Unit: "grams"},
		}},
		"salad": {Ingredients: []Ingredient{
			{Name: "tomato", Quantity: 1.5, Unit: "pieces"},
			{Name: "Olive oil", Quantity: 1, Unit: "tbsp"},
		}},
	}

	items := p.ShoppingList(recipes)

	assert.Equal(t, []ShoppingItem{
		{Name: "olive oil", Quantity: 1, Unit: "tbsp"},
		{Name: "spaghetti", Quantity: 400, Unit: "grams"},
		{Name: "tomato", Quantity: 5.5, Unit: "pieces"},
	}, items)
}
