package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DietaryPreferences lists the values a user may declare on their profile.
var DietaryPreferences = []string{
	"vegetarian", "vegan", "keto", "gluten-free", "dairy-free", "paleo", "low-carb", "pescatarian",
}

// User models an account. Credential and lockout fields never leave the server.
type User struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Role               string     `json:"role"`
	ProfileImage       string     `json:"profileImage"`
	Bio                string     `json:"bio,omitempty"`
	Location           string     `json:"location,omitempty"`
	Website            string     `json:"website,omitempty"`
	DietaryPreferences []string   `json:"dietaryPreferences"`
	SavedRecipes       []string   `json:"savedRecipes"`
	UploadedRecipes    []string   `json:"uploadedRecipes"`
	Followers          []string   `json:"followers"`
	Following          []string   `json:"following"`
	IsVerified         bool       `json:"isVerified"`
	IsActive           bool       `json:"isActive"`
	LoginAttempts      int        `json:"-"`
	LockUntil          *time.Time `json:"-"`
	LastLogin          *time.Time `json:"lastLogin,omitempty"`
	ResetTokenHash     string     `json:"-"`
	ResetTokenExpires  *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// IsLocked reports whether a lock is set and still in the future.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// HasStaleLock reports whether a lock was set but has already elapsed.
func (u *User) HasStaleLock(now time.Time) bool {
	return u.LockUntil != nil && !u.LockUntil.After(now)
}

// HasSaved reports whether recipeID is in the user's saved list.
func (u *User) HasSaved(recipeID string) bool {
	return containsID(u.SavedRecipes, recipeID)
}

// IsFollowing reports whether the user follows targetID.
func (u *User) IsFollowing(targetID string) bool {
	return containsID(u.Following, targetID)
}

// PublicProfile is the view of a user exposed to other users.
type PublicProfile struct {
	ID                 string    `json:"id"`
	Username           string    `json:"username"`
	ProfileImage       string    `json:"profileImage"`
	Bio                string    `json:"bio,omitempty"`
	Location           string    `json:"location,omitempty"`
	Website            string    `json:"website,omitempty"`
	DietaryPreferences []string  `json:"dietaryPreferences"`
	RecipesCount       int       `json:"recipesCount"`
	FollowersCount     int       `json:"followersCount"`
	FollowingCount     int       `json:"followingCount"`
	CreatedAt          time.Time `json:"createdAt"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:                 u.ID,
		Username:           u.Username,
		ProfileImage:       u.ProfileImage,
		Bio:                u.Bio,
		Location:           u.Location,
		Website:            u.Website,
		DietaryPreferences: nonNil(u.DietaryPreferences),
		RecipesCount:       len(u.UploadedRecipes),
		FollowersCount:     len(u.Followers),
		FollowingCount:     len(u.Following),
		CreatedAt:          u.CreatedAt,
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
