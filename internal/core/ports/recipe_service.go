package ports

import (
	"context"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
)

// RecipeInput carries the writable recipe fields. On update, nil fields keep
// their stored value.
type RecipeInput struct {
	Title         *string
	Description   *string
	Category      *string
	Cuisine       *string
	DietaryTags   *[]string
	Ingredients   *[]domain.Ingredient
	Instructions  *[]domain.Instruction
	PrepTime      *int
	CookingTime   *int
	Difficulty    *string
	Servings      *int
	Images        *[]string
	VideoURL      *string
	NutritionInfo *domain.NutritionInfo
	Tags          *[]string
	IsPremium     *bool
	IsPublished   *bool
}

// Actor identifies the authenticated caller. The zero value is anonymous.
type Actor struct {
	UserID string
	Role   string
}

// ListRecipesInput is the raw list request before defaults and caps.
type ListRecipesInput struct {
	Filter    RecipeFilter
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// RecipePage is a page of listed recipes plus pagination metadata.
type RecipePage struct {
	Items       []*domain.Recipe
	TotalCount  int64
	Page        int
	Limit       int
	TotalPages  int
	HasNextPage bool
	HasPrevPage bool
}

type RecipeService interface {
	CreateRecipe(ctx context.Context, author Actor, input RecipeInput) (*domain.Recipe, error)
	GetRecipe(ctx context.Context, actor Actor, id string) (*domain.Recipe, error)
	UpdateRecipe(ctx context.Context, actor Actor, id string, input RecipeInput) (*domain.Recipe, error)
	DeleteRecipe(ctx context.Context, actor Actor, id string) error
	ListRecipes(ctx context.Context, input ListRecipesInput) (*RecipePage, error)
	AddRating(ctx context.Context, recipeID, userID string, rating int, review string) (*domain.Recipe, error)
	ToggleLike(ctx context.Context, recipeID, userID string) (*domain.Recipe, bool, error)
	IncrementViews(ctx context.Context, recipeID string) (*domain.Recipe, error)
	SetApproval(ctx context.Context, recipeID string, approved bool) (*domain.Recipe, error)
	Popular(ctx context.Context, limit int) ([]*domain.Recipe, error)
	FindByIngredient(ctx context.Context, name string) ([]*domain.Recipe, error)
}
