package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	Categories   = []string{"breakfast", "lunch", "dinner", "desserts", "drinks", "snacks", "appetizers"}
	Cuisines     = []string{"italian", "chinese", "indian", "mexican", "mediterranean", "american", "french", "thai", "japanese", "other"}
	DietaryTags  = []string{"vegetarian", "vegan", "keto", "gluten-free", "dairy-free", "paleo", "low-carb", "pescatarian", "nut-free", "soy-free"}
	Units        = []string{"cups", "tbsp", "tsp", "grams", "kg", "pounds", "oz", "liters", "ml", "pieces", "cloves", "slices", "pinch", "dash", "whole"}
	Difficulties = []string{"Easy", "Medium", "Hard"}
)

// CategoryAll is the list-filter sentinel meaning "any category".
const CategoryAll = "all"

const (
	MinRating = 1
	MaxRating = 5

	MaxReviewLength = 500
	MaxTagLength    = 30
)

var mediaURLPattern = regexp.MustCompile(`^https?://.+`)

// IsMediaURL reports whether s is an absolute http(s) URL.
func IsMediaURL(s string) bool {
	return mediaURLPattern.MatchString(s)
}

// Ingredient is a single line of a recipe's ingredient list.
type Ingredient struct {
	Name     string  `json:"name" bson:"name"`
	Quantity float64 `json:"quantity" bson:"quantity"`
	Unit     string  `json:"unit" bson:"unit"`
}

// Instruction is one ordered preparation step.
type Instruction struct {
	StepNumber  int    `json:"stepNumber" bson:"step_number"`
	Description string `json:"description" bson:"description"`
	Image       string `json:"image,omitempty" bson:"image,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty" bson:"video_url,omitempty"`
	Timer       *int   `json:"timer,omitempty" bson:"timer,omitempty"`
}

// NutritionInfo holds optional per-serving nutrition values.
type NutritionInfo struct {
	Calories *float64 `json:"calories,omitempty" bson:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty" bson:"protein,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty" bson:"carbs,omitempty"`
	Fat      *float64 `json:"fat,omitempty" bson:"fat,omitempty"`
	Fiber    *float64 `json:"fiber,omitempty" bson:"fiber,omitempty"`
	Sugar    *float64 `json:"sugar,omitempty" bson:"sugar,omitempty"`
	Sodium   *float64 `json:"sodium,omitempty" bson:"sodium,omitempty"`
}

// Rating is one user's score for a recipe. A recipe holds at most one per user.
type Rating struct {
	User      string    `json:"user" bson:"user"`
	Rating    int       `json:"rating" bson:"rating"`
	Review    string    `json:"review,omitempty" bson:"review,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Recipe is the core aggregate root.
type Recipe struct {
	ID            string         `json:"id" bson:"_id,omitempty"`
	Title         string         `json:"title" bson:"title"`
	Description   string         `json:"description" bson:"description"`
	Category      string         `json:"category" bson:"category"`
	Cuisine       string         `json:"cuisine,omitempty" bson:"cuisine,omitempty"`
	DietaryTags   []string       `json:"dietaryTags" bson:"dietary_tags"`
	Ingredients   []Ingredient   `json:"ingredients" bson:"ingredients"`
	Instructions  []Instruction  `json:"instructions" bson:"instructions"`
	PrepTime      int            `json:"prepTime" bson:"prep_time"`
	CookingTime   int            `json:"cookingTime" bson:"cooking_time"`
	TotalTime     int            `json:"totalTime" bson:"total_time"`
	Difficulty    string         `json:"difficulty" bson:"difficulty"`
	Servings      int            `json:"servings" bson:"servings"`
	Images        []string       `json:"images" bson:"images"`
	VideoURL      string         `json:"videoUrl,omitempty" bson:"video_url,omitempty"`
	Author        string         `json:"author" bson:"author"`
	Ratings       []Rating       `json:"ratings" bson:"ratings"`
	AverageRating float64        `json:"averageRating" bson:"average_rating"`
	TotalRatings  int            `json:"totalRatings" bson:"total_ratings"`
	Views         int64          `json:"views" bson:"views"`
	Likes         []string       `json:"likes" bson:"likes"`
	NutritionInfo *NutritionInfo `json:"nutritionInfo,omitempty" bson:"nutrition_info,omitempty"`
	Tags          []string       `json:"tags" bson:"tags"`
	IsApproved    bool           `json:"isApproved" bson:"is_approved"`
	IsPremium     bool           `json:"isPremium" bson:"is_premium"`
	IsPublished   bool           `json:"isPublished" bson:"is_published"`
	PublishedAt   *time.Time     `json:"publishedAt,omitempty" bson:"published_at,omitempty"`
	LastModified  time.Time      `json:"lastModified" bson:"last_modified"`
	CreatedAt     time.Time      `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updated_at"`
	Version       int64          `json:"-" bson:"version"`
}

// Validate checks the field constraints of a recipe about to be stored.
func (r *Recipe) Validate() error {
	verr := &ValidationError{}
	runes := func(s string) int { return utf8.RuneCountInString(strings.TrimSpace(s)) }

	if n := runes(r.Title); n < 3 || n > 100 {
		verr.Add("title", "title must be between 3 and 100 characters")
	}
	if runes(r.Description) == 0 {
		verr.Add("description", "description is required")
	} else if runes(r.Description) > 1000 {
		verr.Add("description", "description cannot exceed 1000 characters")
	}
	if !Contains(Categories, r.Category) {
		verr.Add("category", "category must be one of "+strings.Join(Categories, ", "))
	}
	if r.Cuisine != "" && !Contains(Cuisines, r.Cuisine) {
		verr.Add("cuisine", "cuisine must be one of "+strings.Join(Cuisines, ", "))
	}
	for _, tag := range r.DietaryTags {
		if !Contains(DietaryTags, tag) {
			verr.Add("dietaryTags", fmt.Sprintf("%q is not a supported dietary tag", tag))
		}
	}

	if len(r.Ingredients) == 0 {
		verr.Add("ingredients", "at least one ingredient is required")
	}
	for i, ing := range r.Ingredients {
		if runes(ing.Name) == 0 {
			verr.Add(fmt.Sprintf("ingredients[%d].name", i), "ingredient name is required")
		}
		if ing.Quantity < 0.01 {
			verr.Add(fmt.Sprintf("ingredients[%d].quantity", i), "quantity must be at least 0.01")
		}
		if !Contains(Units, ing.Unit) {
			verr.Add(fmt.Sprintf("ingredients[%d].unit", i), "unit must be one of "+strings.Join(Units, ", "))
		}
	}

	if len(r.Instructions) == 0 {
		verr.Add("instructions", "at least one instruction is required")
	}
	for i, step := range r.Instructions {
		field := fmt.Sprintf("instructions[%d]", i)
		if step.StepNumber < 1 {
			verr.Add(field+".stepNumber", "step number must be at least 1")
		}
		if n := runes(step.Description); n == 0 || n > 500 {
			verr.Add(field+".description", "step description is required and cannot exceed 500 characters")
		}
		if step.Image != "" && !IsMediaURL(step.Image) {
			verr.Add(field+".image", "image must be a valid URL")
		}
		if step.VideoURL != "" && !IsMediaURL(step.VideoURL) {
			verr.Add(field+".videoUrl", "video URL must be a valid URL")
		}
		if step.Timer != nil && *step.Timer < 0 {
			verr.Add(field+".timer", "timer cannot be negative")
		}
	}

	if r.PrepTime < 1 {
		verr.Add("prepTime", "prep time must be at least 1 minute")
	}
	if r.CookingTime < 1 {
		verr.Add("cookingTime", "cooking time must be at least 1 minute")
	}
	if !Contains(Difficulties, r.Difficulty) {
		verr.Add("difficulty", "difficulty must be one of "+strings.Join(Difficulties, ", "))
	}
	if r.Servings < 1 || r.Servings > 100 {
		verr.Add("servings", "servings must be between 1 and 100")
	}
	for _, img := range r.Images {
		if !IsMediaURL(img) {
			verr.Add("images", "image must be a valid URL")
			break
		}
	}
	if r.VideoURL != "" && !IsMediaURL(r.VideoURL) {
		verr.Add("videoUrl", "video URL must be a valid URL")
	}
	if r.NutritionInfo != nil && r.NutritionInfo.Calories != nil && *r.NutritionInfo.Calories < 0 {
		verr.Add("nutritionInfo.calories", "calories cannot be negative")
	}
	for _, tag := range r.Tags {
		if runes(tag) > MaxTagLength {
			verr.Add("tags", fmt.Sprintf("tags cannot exceed %d characters", MaxTagLength))
			break
		}
	}
	return verr.OrNil()
}

// PrepareForPersist returns r with every derived field recomputed for a write at now.
// Repositories call it immediately before each insert or replace.
func PrepareForPersist(r Recipe, now time.Time) Recipe {
	r.TotalTime = r.PrepTime + r.CookingTime
	r.LastModified = now
	r.UpdatedAt = now
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.IsPublished && r.PublishedAt == nil {
		published := now
		r.PublishedAt = &published
	}

	r.AverageRating, r.TotalRatings = aggregateRatings(r.Ratings)
	r.Likes = uniqueIDs(r.Likes)
	r.Tags = normalizeTags(r.Tags)

	if r.DietaryTags == nil {
		r.DietaryTags = []string{}
	}
	if r.Ingredients == nil {
		r.Ingredients = []Ingredient{}
	}
	if r.Instructions == nil {
		r.Instructions = []Instruction{}
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	if r.Ratings == nil {
		r.Ratings = []Rating{}
	}
	return r
}

// aggregateRatings returns the mean rounded to one decimal and the count.
func aggregateRatings(ratings []Rating) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, rt := range ratings {
		sum += rt.Rating
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10, len(ratings)
}

// ApplyRating upserts userID's rating: an existing entry is replaced in place,
// otherwise a new one is appended.
func (r *Recipe) ApplyRating(userID string, rating int, review string, now time.Time) error {
	if rating < MinRating || rating > MaxRating {
		return NewValidationError("rating", "rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(review) > MaxReviewLength {
		return NewValidationError("review", "review cannot exceed 500 characters")
	}
	entry := Rating{User: userID, Rating: rating, Review: strings.TrimSpace(review), CreatedAt: now}
	for i := range r.Ratings {
		if r.Ratings[i].User == userID {
			r.Ratings[i] = entry
			return nil
		}
	}
	r.Ratings = append(r.Ratings, entry)
	return nil
}

// ToggleLike adds userID to likes when absent and removes it when present.
// It reports whether the user likes the recipe afterwards.
func (r *Recipe) ToggleLike(userID string) bool {
	for i, id := range r.Likes {
		if id == userID {
			r.Likes = append(r.Likes[:i:i], r.Likes[i+1:]...)
			return false
		}
	}
	r.Likes = append(r.Likes, userID)
	return true
}

// IsLikedBy reports whether userID is in the likes set.
func (r *Recipe) IsLikedBy(userID string) bool {
	return containsID(r.Likes, userID)
}

// CanModify reports whether the actor may edit or delete the recipe.
func (r *Recipe) CanModify(actorID, role string) bool {
	return role == RoleAdmin || (actorID != "" && r.Author == actorID)
}

// IsListed reports whether the recipe is visible in public listings.
func (r *Recipe) IsListed() bool {
	return r.IsApproved && r.IsPublished
}

// VisibleTo reports whether the actor may read the recipe.
func (r *Recipe) VisibleTo(actorID, role string) bool {
	return r.IsListed() || r.CanModify(actorID, role)
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Contains reports whether v is one of values.
func Contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
