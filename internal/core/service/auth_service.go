package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)
	validate        = validator.New()
)

// bcrypt ignores input past 72 bytes; longer passwords are rejected.
const maxPasswordBytes = 72

// AuthPolicy holds the tunable parts of the authentication flow.
// MaxLoginAttempts <= 0 disables lockout.
type AuthPolicy struct {
	TokenTTL          time.Duration
	BcryptCost        int
	MinPasswordLength int
	MaxLoginAttempts  int
	LockDuration      time.Duration
	ResetTokenTTL     time.Duration
}

func DefaultAuthPolicy() AuthPolicy {
	return AuthPolicy{
		TokenTTL:          24 * time.Hour,
		BcryptCost:        12,
		MinPasswordLength: 8,
		MaxLoginAttempts:  5,
		LockDuration:      2 * time.Hour,
		ResetTokenTTL:     10 * time.Minute,
	}
}

// AuthService implements registration, login, token verification and account administration.
type AuthService struct {
	users     ports.UserRepository
	mailer    ports.PasswordResetMailer
	jwtSecret []byte
	policy    AuthPolicy
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(users ports.UserRepository, mailer ports.PasswordResetMailer, jwtSecret string, policy AuthPolicy, log zerolog.Logger) *AuthService {
	def := DefaultAuthPolicy()
	if policy.TokenTTL <= 0 {
		policy.TokenTTL = def.TokenTTL
	}
	if policy.BcryptCost == 0 {
		policy.BcryptCost = def.BcryptCost
	}
	if policy.MinPasswordLength <= 0 {
		policy.MinPasswordLength = def.MinPasswordLength
	}
	if policy.LockDuration <= 0 {
		policy.LockDuration = def.LockDuration
	}
	if policy.ResetTokenTTL <= 0 {
		policy.ResetTokenTTL = def.ResetTokenTTL
	}
	return &AuthService{
		users:     users,
		mailer:    mailer,
		jwtSecret: []byte(jwtSecret),
		policy:    policy,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) checkPassword(field, password string, verr *domain.ValidationError) {
	switch {
	case utf8.RuneCountInString(password) < s.policy.MinPasswordLength:
		verr.Add(field, fmt.Sprintf("password must be at least %d characters", s.policy.MinPasswordLength))
	case len(password) > maxPasswordBytes:
		verr.Add(field, fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
}

func checkDietary(prefs []string, verr *domain.ValidationError) {
	for _, p := range prefs {
		if !domain.Contains(domain.DietaryPreferences, p) {
			verr.Add("dietaryPreferences", fmt.Sprintf("%q is not a supported dietary preference", p))
		}
	}
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.policy.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func comparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register validates the input, enforces unique email and username, stores the
// user with a bcrypt hash and returns a signed token.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)

	verr := &domain.ValidationError{}
	if !usernamePattern.MatchString(username) {
		verr.Add("username", "username must be 3-30 characters of letters, numbers and underscores")
	}
	if validate.Var(email, "required,email") != nil {
		verr.Add("email", "please enter a valid email")
	}
	s.checkPassword("password", in.Password, verr)
	checkDietary(in.DietaryPreferences, verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	prefs := in.DietaryPreferences
	if prefs == nil {
		prefs = []string{}
	}
	user, err := s.users.Create(ctx, &domain.User{
		Username:           username,
		Email:              email,
		PasswordHash:       hash,
		Role:               domain.RoleUser,
		DietaryPreferences: prefs,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		// unique index races surface as ErrEmailTaken/ErrUsernameTaken
		return nil, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, fmt.Errorf("register: issue token: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return &ports.AuthResult{Token: token, User: user}, nil
}

// Login authenticates by email and password. Unknown email and wrong password
// return the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, domain.ErrAccountLocked
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDisabled
	}

	if !comparePassword(user.PasswordHash, password) {
		s.recordFailure(ctx, user, now)
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("login: record login: %w", err)
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLogin = &now

	token, err := s.issueToken(user)
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}
	return &ports.AuthResult{Token: token, User: user}, nil
}

// recordFailure counts a failed password and locks the account at the threshold.
// Storage errors are logged; the caller still reports invalid credentials.
func (s *AuthService) recordFailure(ctx context.Context, user *domain.User, now time.Time) {
	if s.policy.MaxLoginAttempts <= 0 {
		return
	}

	if user.HasStaleLock(now) {
		if err := s.users.RestartLoginAttempts(ctx, user.ID); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to restart login attempts")
		}
		return
	}

	attempts, err := s.users.IncrementLoginAttempts(ctx, user.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to increment login attempts")
		return
	}
	if attempts < s.policy.MaxLoginAttempts {
		return
	}

	until := now.Add(s.policy.LockDuration)
	if err := s.users.LockUntil(ctx, user.ID, until); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to lock account")
		return
	}
	s.log.Warn().Str("user_id", user.ID).Int("attempts", attempts).Time("lock_until", until).Msg("account locked")
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a profile patch. The password hash changes only when
// NewPassword is set and CurrentPassword matches.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ports.UpdateProfileInput) (*domain.User, error) {
	verr := &domain.ValidationError{}
	if in.Profile.DietaryPreferences != nil {
		checkDietary(*in.Profile.DietaryPreferences, verr)
	}
	if in.NewPassword != "" {
		if in.CurrentPassword == "" {
			verr.Add("currentPassword", "current password is required to set a new password")
		}
		s.checkPassword("newPassword", in.NewPassword, verr)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if in.NewPassword != "" {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		if !comparePassword(user.PasswordHash, in.CurrentPassword) {
			return nil, domain.NewValidationError("currentPassword", "current password is incorrect")
		}
		hash, err := s.hashPassword(in.NewPassword)
		if err != nil {
			return nil, err
		}
		if err := s.users.SetPassword(ctx, userID, hash); err != nil {
			return nil, fmt.Errorf("update profile: set password: %w", err)
		}
		s.log.Info().Str("user_id", userID).Msg("password changed")
	}

	user, err := s.users.UpdateProfile(ctx, userID, in.Profile)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// RequestPasswordReset stores a hashed one-time token and queues the reset
// mail. Unknown addresses succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if validate.Var(email, "required,email") != nil {
		return domain.NewValidationError("email", "please enter a valid email")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.log.Debug().Msg("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}

	token, digest, err := newResetToken()
	if err != nil {
		return fmt.Errorf("request password reset: generate token: %w", err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, digest, s.now().Add(s.policy.ResetTokenTTL)); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}

	if s.mailer == nil {
		s.log.Warn().Str("user_id", user.ID).Msg("no mailer configured, reset token not delivered")
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, token); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to queue password reset mail")
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	verr := &domain.ValidationError{}
	if token == "" {
		verr.Add("token", "reset token is required")
	}
	s.checkPassword("password", newPassword, verr)
	if err := verr.OrNil(); err != nil {
		return err
	}

	user, err := s.users.FindByResetTokenHash(ctx, hashResetToken(token), s.now())
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

// EnsureAdmin makes sure an active admin account exists for email. An existing
// account (matched by email, then username) is promoted and reactivated;
// otherwise a new admin is created. Calling it repeatedly is a no-op.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = s.users.FindByUsername(ctx, username)
	}
	switch {
	case err == nil:
		return s.promote(ctx, user)
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("ensure admin: %w", err)
	}

	verr := &domain.ValidationError{}
	if !usernamePattern.MatchString(username) {
		verr.Add("username", "username must be 3-30 characters of letters, numbers and underscores")
	}
	if validate.Var(email, "required,email") != nil {
		verr.Add("email", "please enter a valid email")
	}
	s.checkPassword("password", password, verr)
	if err := verr.OrNil(); err != nil {
		return nil, fmt.Errorf("ensure admin: %w", err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	created, err := s.users.Create(ctx, &domain.User{
		Username:           username,
		Email:              email,
		PasswordHash:       hash,
		Role:               domain.RoleAdmin,
		DietaryPreferences: []string{},
		IsActive:           true,
		IsVerified:         true,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure admin: %w", err)
	}
	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("admin account created")
	return created, nil
}

func (s *AuthService) promote(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.Role != domain.RoleAdmin {
		if err := s.users.SetRole(ctx, user.ID, domain.RoleAdmin); err != nil {
			return nil, fmt.Errorf("ensure admin: %w", err)
		}
		user.Role = domain.RoleAdmin
		s.log.Info().Str("user_id", user.ID).Msg("account promoted to admin")
	}
	if !user.IsActive {
		if _, err := s.users.SetActive(ctx, user.ID, true); err != nil {
			return nil, fmt.Errorf("ensure admin: %w", err)
		}
		user.IsActive = true
	}
	return user, nil
}

func (s *AuthService) SetUserActive(ctx context.Context, userID string, active bool) (*domain.User, error) {
	user, err := s.users.SetActive(ctx, userID, active)
	if err != nil {
		return nil, fmt.Errorf("set user active: %w", err)
	}
	s.log.Info().Str("user_id", userID).Bool("active", active).Msg("account status changed")
	return user, nil
}
