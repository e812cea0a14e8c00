package ports

import (
	"context"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
)

type UserService interface {
	ToggleSavedRecipe(ctx context.Context, userID, recipeID string) (bool, error)
	SavedRecipes(ctx context.Context, userID string) ([]*domain.Recipe, error)
	ToggleFollow(ctx context.Context, userID, targetID string) (bool, error)
	PublicProfile(ctx context.Context, userID string) (*domain.PublicProfile, error)
}
