package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

var (
	WeekDays  = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	MealSlots = []string{"breakfast", "lunch", "dinner", "snack"}
)

// MealEntry assigns one recipe to a (day, slot) cell of the week.
type MealEntry struct {
	Day    string `json:"day" bson:"day"`
	Slot   string `json:"slot" bson:"slot"`
	Recipe string `json:"recipe" bson:"recipe"`
}

// MealPlan is a user's plan for the week starting at WeekStart (Monday 00:00 UTC).
type MealPlan struct {
	ID        string      `json:"id,omitempty" bson:"_id,omitempty"`
	Owner     string      `json:"owner" bson:"owner"`
	WeekStart time.Time   `json:"weekStart" bson:"week_start"`
	Entries   []MealEntry `json:"entries" bson:"entries"`
	CreatedAt time.Time   `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" bson:"updated_at"`
	// Version is bumped on every save.
	Version int64 `json:"-" bson:"version"`
}

// NormalizeWeekStart returns Monday 00:00 UTC of the week containing t.
func NormalizeWeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// NewMealPlan returns an empty plan for the week containing date.
func NewMealPlan(owner string, date time.Time) *MealPlan {
	return &MealPlan{
		Owner:     owner,
		WeekStart: NormalizeWeekStart(date),
		Entries:   []MealEntry{},
	}
}

func validateCell(day, slot string) error {
	verr := &ValidationError{}
	if !Contains(WeekDays, day) {
		verr.Add("day", "day must be one of "+strings.Join(WeekDays, ", "))
	}
	if !Contains(MealSlots, slot) {
		verr.Add("slot", "slot must be one of "+strings.Join(MealSlots, ", "))
	}
	return verr.OrNil()
}

// SetSlot places recipeID in the (day, slot) cell, replacing any previous recipe.
func (p *MealPlan) SetSlot(day, slot, recipeID string) error {
	if err := validateCell(day, slot); err != nil {
		return err
	}
	for i := range p.Entries {
		if p.Entries[i].Day == day && p.Entries[i].Slot == slot {
			p.Entries[i].Recipe = recipeID
			return nil
		}
	}
	p.Entries = append(p.Entries, MealEntry{Day: day, Slot: slot, Recipe: recipeID})
	return nil
}

// ClearSlot empties the (day, slot) cell. It reports whether the cell held a recipe.
func (p *MealPlan) ClearSlot(day, slot string) (bool, error) {
	if err := validateCell(day, slot); err != nil {
		return false, err
	}
	for i := range p.Entries {
		if p.Entries[i].Day == day && p.Entries[i].Slot == slot {
			p.Entries = append(p.Entries[:i:i], p.Entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// RecipeIDs returns the distinct recipe ids referenced by the plan.
func (p *MealPlan) RecipeIDs() []string {
	ids := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		ids = append(ids, e.Recipe)
	}
	return uniqueIDs(ids)
}

// ShoppingItem is one aggregated line of a shopping list.
type ShoppingItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// ShoppingList sums the ingredients of every planned meal by (lowercased name, unit).
// A recipe planned twice contributes twice. Entries whose recipe is absent from
// recipes are skipped.
func (p *MealPlan) ShoppingList(recipes map[string]*Recipe) []ShoppingItem {
	type key struct{ name, unit string }
	totals := make(map[key]float64)
	for _, e := range p.Entries {
		r, ok := recipes[e.Recipe]
		if !ok {
			continue
		}
		for _, ing := range r.Ingredients {
			k := key{name: strings.ToLower(strings.TrimSpace(ing.Name)), unit: ing.Unit}
			totals[k] += ing.Quantity
		}
	}

	items := make([]ShoppingItem, 0, len(totals))
	for k, qty := range totals {
		items = append(items, ShoppingItem{Name: k.name, Quantity: math.Round(qty*100) / 100, Unit: k.unit})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Unit < items[j].Unit
	})
	return items
}
