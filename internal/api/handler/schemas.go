package handler

import (
	"time"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
)

// messageResponse is returned by endpoints that only confirm an action.
type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Username           string   `json:"username"           validate:"required,username"`
	Email              string   `json:"email"              validate:"required,email"`
	Password           string   `json:"password"           validate:"required"`
	DietaryPreferences []string `json:"dietaryPreferences" validate:"omitempty,dive,oneof=vegetarian vegan keto gluten-free dairy-free paleo low-carb pescatarian"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Bio                *string   `json:"bio"                validate:"omitempty,max=500"`
	Location           *string   `json:"location"           validate:"omitempty,max=100"`
	Website            *string   `json:"website"            validate:"omitempty,max=200,httpurl"`
	ProfileImage       *string   `json:"profileImage"       validate:"omitempty,httpurl"`
	DietaryPreferences *[]string `json:"dietaryPreferences" validate:"omitempty,dive,oneof=vegetarian vegan keto gluten-free dairy-free paleo low-carb pescatarian"`
	CurrentPassword    string    `json:"currentPassword"`
	NewPassword        string    `json:"newPassword"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

// --- Recipes ---

type ingredientRequest struct {
	Name     string  `json:"name"     validate:"required,max=100"`
	Quantity float64 `json:"quantity" validate:"gte=0.01"`
	Unit     string  `json:"unit"     validate:"required"`
}

type instructionRequest struct {
	StepNumber  int    `json:"stepNumber"  validate:"gte=1"`
	Description string `json:"description" validate:"required,max=500"`
	Image       string `json:"image"       validate:"omitempty,httpurl"`
	VideoURL    string `json:"videoUrl"    validate:"omitempty,httpurl"`
	Timer       *int   `json:"timer"       validate:"omitempty,gte=0"`
}

type nutritionRequest struct {
	Calories *float64 `json:"calories" validate:"omitempty,gte=0"`
	Protein  *float64 `json:"protein"  validate:"omitempty,gte=0"`
	Carbs    *float64 `json:"carbs"    validate:"omitempty,gte=0"`
	Fat      *float64 `json:"fat"      validate:"omitempty,gte=0"`
	Fiber    *float64 `json:"fiber"    validate:"omitempty,gte=0"`
	Sugar    *float64 `json:"sugar"    validate:"omitempty,gte=0"`
	Sodium   *float64 `json:"sodium"   validate:"omitempty,gte=0"`
}

// recipeRequest is the body of create and update. Omitted fields are left
// untouched on update; the domain model enforces the full rule set.
type recipeRequest struct {
	Title         *string               `json:"title"         validate:"omitempty,max=100"`
	Description   *string               `json:"description"   validate:"omitempty,max=1000"`
	Category      *string               `json:"category"`
	Cuisine       *string               `json:"cuisine"`
	DietaryTags   *[]string             `json:"dietaryTags"`
	Ingredients   *[]ingredientRequest  `json:"ingredients"   validate:"omitempty,dive"`
	Instructions  *[]instructionRequest `json:"instructions"  validate:"omitempty,dive"`
	PrepTime      *int                  `json:"prepTime"      validate:"omitempty,gte=1"`
	CookingTime   *int                  `json:"cookingTime"   validate:"omitempty,gte=1"`
	Difficulty    *string               `json:"difficulty"`
	Servings      *int                  `json:"servings"      validate:"omitempty,gte=1,lte=100"`
	Images        *[]string             `json:"images"        validate:"omitempty,dive,httpurl"`
	VideoURL      *string               `json:"videoUrl"      validate:"omitempty,httpurl"`
	NutritionInfo *nutritionRequest     `json:"nutritionInfo"`
	Tags          *[]string             `json:"tags"          validate:"omitempty,dive,max=30"`
	IsPremium     *bool                 `json:"isPremium"`
	IsPublished   *bool                 `json:"isPublished"`
}

type listRecipesRequest struct {
	Page        int    `query:"page"        validate:"gte=0"`
	Limit       int    `query:"limit"       validate:"gte=0"`
	Category    string `query:"category"`
	Dietary     string `query:"dietary"`
	DietaryTags string `query:"dietaryTags"`
	Difficulty  string `query:"difficulty"`
	Author      string `query:"author"`
	Search      string `query:"search"      validate:"max=100"`
	SortBy      string `query:"sortBy"`
	SortOrder   string `query:"sortOrder"   validate:"omitempty,oneof=asc desc"`
}

type rateRequest struct {
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
	Review string `json:"review" validate:"max=500"`
}

type paginationResponse struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

type recipeListResponse struct {
	Recipes    []*domain.Recipe   `json:"recipes"`
	Pagination paginationResponse `json:"pagination"`
}

type recipesResponse struct {
	Recipes []*domain.Recipe `json:"recipes"`
}

type recipeResponse struct {
	Recipe *domain.Recipe `json:"recipe"`
}

type likeResponse struct {
	Recipe *domain.Recipe `json:"recipe"`
	Liked  bool           `json:"liked"`
}

// --- Users ---

type savedResponse struct {
	Saved bool `json:"saved"`
}

type followResponse struct {
	Following bool `json:"following"`
}

type publicProfileResponse struct {
	User *domain.PublicProfile `json:"user"`
}

// --- Meal plans ---

type mealPlanQuery struct {
	Date string `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

type setSlotRequest struct {
	Date   string `json:"date"   validate:"omitempty,datetime=2006-01-02"`
	Day    string `json:"day"    validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Slot   string `json:"slot"   validate:"required,oneof=breakfast lunch dinner snack"`
	Recipe string `json:"recipe" validate:"required"`
}

type clearSlotRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Day  string `json:"day"  validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Slot string `json:"slot" validate:"required,oneof=breakfast lunch dinner snack"`
}

type mealPlanResponse struct {
	MealPlan *domain.MealPlan `json:"mealPlan"`
}

type shoppingListResponse struct {
	WeekStart time.Time             `json:"weekStart"`
	Items     []domain.ShoppingItem `json:"items"`
}

// --- Admin ---

type approvalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

type userStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// --- Health ---

type livenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}
