package ports

import (
	"context"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
)

// RecipeFilter carries the conjunctive filters of the public recipe listing.
// Approval and publication are always enforced by the repository.
type RecipeFilter struct {
	Category    string   // empty or "all" = no filter
	DietaryTags []string // match any
	Difficulty  string
	Author      string
	Search      string // case-insensitive over title, description, ingredient names, tags
}

// RecipeQuery is a normalized list request: page >= 1, 1 <= limit <= 100,
// SortBy is a whitelisted field name.
type RecipeQuery struct {
	Filter   RecipeFilter
	SortBy   string
	SortDesc bool
	Page     int
	Limit    int
}

// RecipeMutation edits a freshly read recipe. Returning an error aborts the write.
type RecipeMutation func(r *domain.Recipe) error

// RecipeRepository defines persistence operations for recipes. Every insert
// and replace passes the document through domain.PrepareForPersist.
type RecipeRepository interface {
	Create(ctx context.Context, r *domain.Recipe) (*domain.Recipe, error)
	FindByID(ctx context.Context, id string) (*domain.Recipe, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Recipe, error)
	// Mutate runs a read, mutate, compare-and-swap cycle on the document
	// version. A concurrent write causes a re-read and re-application of fn;
	// when attempts are exhausted domain.ErrConflict is returned.
	Mutate(ctx context.Context, id string, fn RecipeMutation) (*domain.Recipe, error)
	IncrementViews(ctx context.Context, id string) (*domain.Recipe, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q RecipeQuery) ([]*domain.Recipe, int64, error)
	Popular(ctx context.Context, limit int) ([]*domain.Recipe, error)
	FindByIngredient(ctx context.Context, name string, limit int) ([]*domain.Recipe, error)
}

// PopularCache stores the popular-recipes listing for a short time.
type PopularCache interface {
	GetPopular(ctx context.Context, limit int) ([]*domain.Recipe, bool, error)
	SetPopular(ctx context.Context, limit int, recipes []*domain.Recipe) error
	InvalidatePopular(ctx context.Context) error
}
