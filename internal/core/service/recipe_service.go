package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

const (
	defaultPage     = 1
	defaultLimit    = 12
	maxLimit        = 100
	defaultPopular  = 10
	maxPopular      = 50
	ingredientLimit = 50
	defaultSortBy   = "createdAt"
)

var sortFields = map[string]struct{}{
	"createdAt":     {},
	"averageRating": {},
	"views":         {},
	"totalTime":     {},
	"title":         {},
	"totalRatings":  {},
}

type RecipeService struct {
	recipes ports.RecipeRepository
	users   ports.UserRepository
	cache   ports.PopularCache
	log     zerolog.Logger
	now     func() time.Time
}

// NewRecipeService returns a RecipeService. cache may be nil.
func NewRecipeService(recipes ports.RecipeRepository, users ports.UserRepository, cache ports.PopularCache, log zerolog.Logger) *RecipeService {
	return &RecipeService{
		recipes: recipes,
		users:   users,
		cache:   cache,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// applyInput copies the set fields of in onto r.
func applyInput(r *domain.Recipe, in ports.RecipeInput) {
	if in.Title != nil {
		r.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		r.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		r.Category = *in.Category
	}
	if in.Cuisine != nil {
		r.Cuisine = *in.Cuisine
	}
	if in.DietaryTags != nil {
		r.DietaryTags = *in.DietaryTags
	}
	if in.Ingredients != nil {
		r.Ingredients = *in.Ingredients
	}
	if in.Instructions != nil {
		r.Instructions = *in.Instructions
	}
	if in.PrepTime != nil {
		r.PrepTime = *in.PrepTime
	}
	if in.CookingTime != nil {
		r.CookingTime = *in.CookingTime
	}
	if in.Difficulty != nil {
		r.Difficulty = *in.Difficulty
	}
	if in.Servings != nil {
		r.Servings = *in.Servings
	}
	if in.Images != nil {
		r.Images = *in.Images
	}
	if in.VideoURL != nil {
		r.VideoURL = *in.VideoURL
	}
	if in.NutritionInfo != nil {
		r.NutritionInfo = in.NutritionInfo
	}
	if in.Tags != nil {
		r.Tags = *in.Tags
	}
	if in.IsPremium != nil {
		r.IsPremium = *in.IsPremium
	}
	if in.IsPublished != nil {
		r.IsPublished = *in.IsPublished
	}
}

// CreateRecipe stores a new recipe and links it to the author's uploaded list.
// If linking fails the recipe is removed again.
func (s *RecipeService) CreateRecipe(ctx context.Context, author ports.Actor, in ports.RecipeInput) (*domain.Recipe, error) {
	if author.UserID == "" {
		return nil, domain.ErrUnauthorized
	}

	recipe := &domain.Recipe{
		Author:      author.UserID,
		IsApproved:  true,
		IsPublished: true,
	}
	applyInput(recipe, in)
	if err := recipe.Validate(); err != nil {
		return nil, err
	}

	created, err := s.recipes.Create(ctx, recipe)
	if err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	if err := s.users.AddUploadedRecipe(ctx, author.UserID, created.ID); err != nil {
		if delErr := s.recipes.Delete(ctx, created.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("recipe_id", created.ID).Msg("failed to roll back recipe after link failure")
		}
		return nil, fmt.Errorf("create recipe: link author: %w", err)
	}

	s.invalidatePopular(ctx)
	s.log.Info().Str("recipe_id", created.ID).Str("author", author.UserID).Msg("recipe created")
	return created, nil
}

// GetRecipe returns a recipe and counts the view. Unlisted recipes are only
// visible to their author and admins.
func (s *RecipeService) GetRecipe(ctx context.Context, actor ports.Actor, id string) (*domain.Recipe, error) {
	recipe, err := s.recipes.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if !recipe.VisibleTo(actor.UserID, actor.Role) {
		return nil, domain.ErrRecipeNotFound
	}

	viewed, err := s.recipes.IncrementViews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return viewed, nil
}

func (s *RecipeService) UpdateRecipe(ctx context.Context, actor ports.Actor, id string, in ports.RecipeInput) (*domain.Recipe, error) {
	updated, err := s.recipes.Mutate(ctx, id, func(r *domain.Recipe) error {
		if !r.CanModify(actor.UserID, actor.Role) {
			return domain.ErrForbidden
		}
		applyInput(r, in)
		return r.Validate()
	})
	if err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	s.invalidatePopular(ctx)
	return updated, nil
}

// DeleteRecipe removes the recipe and every user reference to it.
func (s *RecipeService) DeleteRecipe(ctx context.Context, actor ports.Actor, id string) error {
	recipe, err := s.recipes.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	if !recipe.CanModify(actor.UserID, actor.Role) {
		return domain.ErrForbidden
	}

	if err := s.recipes.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	if err := s.users.RemoveRecipeReferences(ctx, id); err != nil {
		return fmt.Errorf("delete recipe: unlink users: %w", err)
	}

	s.invalidatePopular(ctx)
	s.log.Info().Str("recipe_id", id).Str("actor", actor.UserID).Msg("recipe deleted")
	return nil
}

// NormalizeListInput applies page, limit and sort defaults.
func NormalizeListInput(in ports.ListRecipesInput) ports.RecipeQuery {
	q := ports.RecipeQuery{
		Filter:   in.Filter,
		SortBy:   in.SortBy,
		SortDesc: !strings.EqualFold(in.SortOrder, "asc"),
		Page:     in.Page,
		Limit:    in.Limit,
	}
	if q.Page < 1 {
		q.Page = defaultPage
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if _, ok := sortFields[q.SortBy]; !ok {
		q.SortBy = defaultSortBy
	}
	q.Filter.Search = strings.TrimSpace(q.Filter.Search)
	return q
}

func (s *RecipeService) ListRecipes(ctx context.Context, in ports.ListRecipesInput) (*ports.RecipePage, error) {
	q := NormalizeListInput(in)

	items, total, err := s.recipes.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	if items == nil {
		items = []*domain.Recipe{}
	}

	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return &ports.RecipePage{
		Items:       items,
		TotalCount:  total,
		Page:        q.Page,
		Limit:       q.Limit,
		TotalPages:  totalPages,
		HasNextPage: q.Page < totalPages,
		HasPrevPage: q.Page > 1,
	}, nil
}

// AddRating upserts userID's rating on a listed recipe.
func (s *RecipeService) AddRating(ctx context.Context, recipeID, userID string, rating int, review string) (*domain.Recipe, error) {
	updated, err := s.recipes.Mutate(ctx, recipeID, func(r *domain.Recipe) error {
		if !r.IsListed() {
			return domain.ErrRecipeNotFound
		}
		return r.ApplyRating(userID, rating, review, s.now())
	})
	if err != nil {
		return nil, fmt.Errorf("add rating: %w", err)
	}

	s.invalidatePopular(ctx)
	s.log.Debug().Str("recipe_id", recipeID).Str("user_id", userID).Int("rating", rating).Msg("recipe rated")
	return updated, nil
}

// ToggleLike flips userID's like and reports the resulting state.
func (s *RecipeService) ToggleLike(ctx context.Context, recipeID, userID string) (*domain.Recipe, bool, error) {
	var liked bool
	updated, err := s.recipes.Mutate(ctx, recipeID, func(r *domain.Recipe) error {
		if !r.IsListed() {
			return domain.ErrRecipeNotFound
		}
		liked = r.ToggleLike(userID)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("toggle like: %w", err)
	}
	return updated, liked, nil
}

func (s *RecipeService) IncrementViews(ctx context.Context, recipeID string) (*domain.Recipe, error) {
	updated, err := s.recipes.IncrementViews(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("increment views: %w", err)
	}
	return updated, nil
}

func (s *RecipeService) SetApproval(ctx context.Context, recipeID string, approved bool) (*domain.Recipe, error) {
	updated, err := s.recipes.Mutate(ctx, recipeID, func(r *domain.Recipe) error {
		r.IsApproved = approved
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set approval: %w", err)
	}

	s.invalidatePopular(ctx)
	s.log.Info().Str("recipe_id", recipeID).Bool("approved", approved).Msg("recipe approval changed")
	return updated, nil
}

// Popular returns the top listed recipes, served from the cache when possible.
func (s *RecipeService) Popular(ctx context.Context, limit int) ([]*domain.Recipe, error) {
	if limit < 1 {
		limit = defaultPopular
	}
	if limit > maxPopular {
		limit = maxPopular
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetPopular(ctx, limit)
		if err != nil {
			s.log.Warn().Err(err).Msg("popular cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	recipes, err := s.recipes.Popular(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("popular recipes: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetPopular(ctx, limit, recipes); err != nil {
			s.log.Warn().Err(err).Msg("popular cache write failed")
		}
	}
	return recipes, nil
}

func (s *RecipeService) FindByIngredient(ctx context.Context, name string) ([]*domain.Recipe, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "ingredient name is required")
	}
	recipes, err := s.recipes.FindByIngredient(ctx, name, ingredientLimit)
	if err != nil {
		return nil, fmt.Errorf("find by ingredient: %w", err)
	}
	return recipes, nil
}

func (s *RecipeService) invalidatePopular(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePopular(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn().Err(err).Msg("popular cache invalidation failed")
	}
}
