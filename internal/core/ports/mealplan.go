package ports

import (
	"context"
	"time"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
)

// MealPlanRepository persists one plan per (owner, weekStart).
type MealPlanRepository interface {
	FindByWeek(ctx context.Context, owner string, weekStart time.Time) (*domain.MealPlan, error)
	// Save stores the plan keyed by owner and week start when the stored
	// version still equals plan.Version, and returns it with the next version.
	// A lost race returns domain.ErrConflict.
	Save(ctx context.Context, plan *domain.MealPlan) (*domain.MealPlan, error)
}

type MealPlanService interface {
	GetWeek(ctx context.Context, owner string, date time.Time) (*domain.MealPlan, error)
	SetSlot(ctx context.Context, owner string, date time.Time, day, slot, recipeID string) (*domain.MealPlan, error)
	ClearSlot(ctx context.Context, owner string, date time.Time, day, slot string) (*domain.MealPlan, error)
	ShoppingList(ctx context.Context, owner string, date time.Time) ([]domain.ShoppingItem, error)
}
