package ports

import (
	"context"
	"time"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
)

// RegisterInput carries the fields of a sign-up request.
type RegisterInput struct {
	Username           string
	Email              string
	Password           string
	DietaryPreferences []string
}

// UpdateProfileInput carries a profile patch plus an optional password change.
type UpdateProfileInput struct {
	Profile         ProfilePatch
	CurrentPassword string
	NewPassword     string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string
	User  *domain.User
}

// Claims are the verified contents of a bearer token.
type Claims struct {
	UserID    string
	Username  string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenVerifier validates bearer tokens for the auth middleware.
type TokenVerifier interface {
	VerifyToken(token string) (*Claims, error)
}

type AuthService interface {
	TokenVerifier
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	EnsureAdmin(ctx context.Context, username, email, password string) (*domain.User, error)
	SetUserActive(ctx context.Context, userID string, active bool) (*domain.User, error)
}

// PasswordResetMailer delivers password-reset links.
type PasswordResetMailer interface {
	SendPasswordReset(ctx context.Context, email, username, token string) error
}
