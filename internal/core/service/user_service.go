package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

// UserService manages a user's saved recipes and social graph.
type UserService struct {
	users   ports.UserRepository
	recipes ports.RecipeRepository
	log     zerolog.Logger
}

func NewUserService(users ports.UserRepository, recipes ports.RecipeRepository, log zerolog.Logger) *UserService {
	return &UserService{users: users, recipes: recipes, log: log}
}

// ToggleSavedRecipe adds or removes recipeID from the user's saved list and
// reports whether it is saved afterwards.
func (s *UserService) ToggleSavedRecipe(ctx context.Context, userID, recipeID string) (bool, error) {
	if _, err := s.recipes.FindByID(ctx, recipeID); err != nil {
		return false, fmt.Errorf("toggle saved recipe: %w", err)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("toggle saved recipe: %w", err)
	}

	if user.HasSaved(recipeID) {
		if err := s.users.RemoveSavedRecipe(ctx, userID, recipeID); err != nil {
			return false, fmt.Errorf("toggle saved recipe: %w", err)
		}
		return false, nil
	}
	if err := s.users.AddSavedRecipe(ctx, userID, recipeID); err != nil {
		return false, fmt.Errorf("toggle saved recipe: %w", err)
	}
	return true, nil
}

// SavedRecipes returns the user's saved recipes in the order they were saved.
// Ids whose recipe no longer exists are skipped.
func (s *UserService) SavedRecipes(ctx context.Context, userID string) ([]*domain.Recipe, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("saved recipes: %w", err)
	}
	if len(user.SavedRecipes) == 0 {
		return []*domain.Recipe{}, nil
	}

	found, err := s.recipes.FindByIDs(ctx, user.SavedRecipes)
	if err != nil {
		return nil, fmt.Errorf("saved recipes: %w", err)
	}
	byID := make(map[string]*domain.Recipe, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}
	out := make([]*domain.Recipe, 0, len(found))
	for _, id := range user.SavedRecipes {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// ToggleFollow follows or unfollows targetID and reports whether the user
// follows the target afterwards.
func (s *UserService) ToggleFollow(ctx context.Context, userID, targetID string) (bool, error) {
	if userID == targetID {
		return false, domain.NewValidationError("id", "you cannot follow yourself")
	}
	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		return false, fmt.Errorf("toggle follow: %w", err)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("toggle follow: %w", err)
	}

	if user.IsFollowing(targetID) {
		if err := s.users.Unfollow(ctx, userID, targetID); err != nil {
			return false, fmt.Errorf("toggle follow: %w", err)
		}
		return false, nil
	}
	if err := s.users.Follow(ctx, userID, targetID); err != nil {
		return false, fmt.Errorf("toggle follow: %w", err)
	}
	return true, nil
}

// PublicProfile returns the public view of an active user.
func (s *UserService) PublicProfile(ctx context.Context, userID string) (*domain.PublicProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("public profile: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrUserNotFound
	}
	profile := user.Public()
	return &profile, nil
}
