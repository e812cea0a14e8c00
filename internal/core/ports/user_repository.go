package ports

import (
	"context"
	"time"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
)

// ProfilePatch carries the optional profile fields a user may change.
// Nil fields are left untouched.
type ProfilePatch struct {
	Bio                *string
	Location           *string
	Website            *string
	ProfileImage       *string
	DietaryPreferences *[]string
}

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create inserts a new user. Unique index violations map to
	// domain.ErrEmailTaken or domain.ErrUsernameTaken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByUsername matches case-insensitively.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*domain.User, error)

	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*domain.User, error)
	// SetPassword stores a new hash and clears any reset token and lockout state.
	SetPassword(ctx context.Context, id, hash string) error
	SetResetToken(ctx context.Context, id, hash string, expires time.Time) error
	SetRole(ctx context.Context, id, role string) error
	SetActive(ctx context.Context, id string, active bool) (*domain.User, error)

	// IncrementLoginAttempts atomically increments the failed-login counter
	// and returns the new value.
	IncrementLoginAttempts(ctx context.Context, id string) (int, error)
	// RestartLoginAttempts sets the counter to 1 and clears an elapsed lock.
	RestartLoginAttempts(ctx context.Context, id string) error
	LockUntil(ctx context.Context, id string, until time.Time) error
	// RecordLogin resets the counter, clears the lock and stamps lastLogin.
	RecordLogin(ctx context.Context, id string, at time.Time) error

	AddUploadedRecipe(ctx context.Context, userID, recipeID string) error
	// RemoveRecipeReferences pulls recipeID from every user's uploaded and saved lists.
	RemoveRecipeReferences(ctx context.Context, recipeID string) error
	AddSavedRecipe(ctx context.Context, userID, recipeID string) error
	RemoveSavedRecipe(ctx context.Context, userID, recipeID string) error
	Follow(ctx context.Context, userID, targetID string) error
	Unfollow(ctx context.Context, userID, targetID string) error
}
