package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

// maxPlanAttempts bounds how often an edit is reapplied after losing a race.
const maxPlanAttempts = 5

type MealPlanService struct {
	plans   ports.MealPlanRepository
	recipes ports.RecipeRepository
	log     zerolog.Logger
	now     func() time.Time
}

func NewMealPlanService(plans ports.MealPlanRepository, recipes ports.RecipeRepository, log zerolog.Logger) *MealPlanService {
	return &MealPlanService{
		plans:   plans,
		recipes: recipes,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// load returns the stored plan for the week containing date, or a new empty one.
func (s *MealPlanService) load(ctx context.Context, owner string, date time.Time) (*domain.MealPlan, error) {
	plan, err := s.plans.FindByWeek(ctx, owner, domain.NormalizeWeekStart(date))
	if errors.Is(err, domain.ErrMealPlanNotFound) {
		return domain.NewMealPlan(owner, date), nil
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *MealPlanService) save(ctx context.Context, plan *domain.MealPlan) (*domain.MealPlan, error) {
	now := s.now()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	return s.plans.Save(ctx, plan)
}

// mutate loads the week's plan, applies fn and saves the result. When another
// writer saved the plan in between, the plan is reloaded and fn applied again.
// fn reports whether it changed the plan; unchanged plans are not written.
func (s *MealPlanService) mutate(ctx context.Context, owner string, date time.Time, fn func(*domain.MealPlan) (bool, error)) (*domain.MealPlan, error) {
	for attempt := 1; attempt <= maxPlanAttempts; attempt++ {
		plan, err := s.load(ctx, owner, date)
		if err != nil {
			return nil, err
		}
		changed, err := fn(plan)
		if err != nil {
			return nil, err
		}
		if !changed {
			return plan, nil
		}

		saved, err := s.save(ctx, plan)
		if errors.Is(err, domain.ErrConflict) {
			s.log.Debug().Str("owner", owner).Int("attempt", attempt).Msg("meal plan changed concurrently, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		return saved, nil
	}
	return nil, domain.ErrConflict
}

func (s *MealPlanService) GetWeek(ctx context.Context, owner string, date time.Time) (*domain.MealPlan, error) {
	plan, err := s.load(ctx, owner, date)
	if err != nil {
		return nil, fmt.Errorf("get meal plan: %w", err)
	}
	return plan, nil
}

// SetSlot assigns a recipe the owner can see to a (day, slot) cell.
func (s *MealPlanService) SetSlot(ctx context.Context, owner string, date time.Time, day, slot, recipeID string) (*domain.MealPlan, error) {
	recipe, err := s.recipes.FindByID(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("set meal slot: %w", err)
	}
	if !recipe.VisibleTo(owner, domain.RoleUser) {
		return nil, fmt.Errorf("set meal slot: %w", domain.ErrRecipeNotFound)
	}

	saved, err := s.mutate(ctx, owner, date, func(plan *domain.MealPlan) (bool, error) {
		return true, plan.SetSlot(day, slot, recipeID)
	})
	if err != nil {
		return nil, fmt.Errorf("set meal slot: %w", err)
	}
	s.log.Debug().Str("owner", owner).Str("day", day).Str("slot", slot).Str("recipe_id", recipeID).Msg("meal slot set")
	return saved, nil
}

func (s *MealPlanService) ClearSlot(ctx context.Context, owner string, date time.Time, day, slot string) (*domain.MealPlan, error) {
	saved, err := s.mutate(ctx, owner, date, func(plan *domain.MealPlan) (bool, error) {
		return plan.ClearSlot(day, slot)
	})
	if err != nil {
		return nil, fmt.Errorf("clear meal slot: %w", err)
	}
	return saved, nil
}

// ShoppingList aggregates the ingredients of every recipe planned for the week.
func (s *MealPlanService) ShoppingList(ctx context.Context, owner string, date time.Time) ([]domain.ShoppingItem, error) {
	plan, err := s.load(ctx, owner, date)
	if err != nil {
		return nil, fmt.Errorf("shopping list: %w", err)
	}
	ids := plan.RecipeIDs()
	if len(ids) == 0 {
		return []domain.ShoppingItem{}, nil
	}

	found, err := s.recipes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("shopping list: %w", err)
	}
	byID := make(map[string]*domain.Recipe, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}
	return plan.ShoppingList(byID), nil
}
