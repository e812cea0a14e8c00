package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// users
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users  map[string]*domain.User
	nextID int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.SavedRecipes = append([]string(nil), u.SavedRecipes...)
	clone.UploadedRecipes = append([]string(nil), u.UploadedRecipes...)
	clone.Followers = append([]string(nil), u.Followers...)
	clone.Following = append([]string(nil), u.Following...)
	return &clone
}

func (r *stubUserRepo) get(id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
		if strings.EqualFold(u.Username, user.Username) {
			return nil, domain.ErrUsernameTaken
		}
	}
	r.nextID++
	c := cloneUser(user)
	c.ID = fmt.Sprintf("user-%d", r.nextID)
	r.users[c.ID] = c
	return cloneUser(c), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, err := r.get(id)
	return cloneUser(u), err
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByResetTokenHash(_ context.Context, hash string, now time.Time) (*domain.User, error) {
	for _, u := range r.users {
		if u.ResetTokenHash == hash && u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) UpdateProfile(_ context.Context, id string, p ports.ProfilePatch) (*domain.User, error) {
	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.Website != nil {
		u.Website = *p.Website
	}
	if p.ProfileImage != nil {
		u.ProfileImage = *p.ProfileImage
	}
	if p.DietaryPreferences != nil {
		u.DietaryPreferences = *p.DietaryPreferences
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) SetPassword(_ context.Context, id, hash string) error {
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.ResetTokenHash = ""
	u.ResetTokenExpires = nil
	u.LoginAttempts = 0
	u.LockUntil = nil
	return nil
}

func (r *stubUserRepo) SetResetToken(_ context.Context, id, hash string, expires time.Time) error {
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.ResetTokenHash = hash
	u.ResetTokenExpires = &expires
	return nil
}

func (r *stubUserRepo) SetRole(_ context.Context, id, role string) error {
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.Role = role
	return nil
}

func (r *stubUserRepo) SetActive(_ context.Context, id string, active bool) (*domain.User, error) {
	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	return cloneUser(u), nil
}

func (r *stubUserRepo) IncrementLoginAttempts(_ context.Context, id string) (int, error) {
	u, err := r.get(id)
	if err != nil {
		return 0, err
	}
	u.LoginAttempts++
	return u.LoginAttempts, nil
}

func (r *stubUserRepo) RestartLoginAttempts(_ context.Context, id string) error {
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.LoginAttempts = 1
	u.LockUntil = nil
	return nil
}

func (r *stubUserRepo) LockUntil(_ context.Context, id string, until time.Time) error {
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.LockUntil = &until
	return nil
}

func (r *stubUserRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.LoginAttempts = 0
	u.LockUntil = nil
	u.LastLogin = &at
	return nil
}

func addToSet(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}

func pull(list []string, id string) []string {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (r *stubUserRepo) AddUploadedRecipe(_ context.Context, userID, recipeID string) error {
	u, err := r.get(userID)
	if err != nil {
		return err
	}
	u.UploadedRecipes = addToSet(u.UploadedRecipes, recipeID)
	return nil
}

func (r *stubUserRepo) RemoveRecipeReferences(_ context.Context, recipeID string) error {
	for _, u := range r.users {
		u.UploadedRecipes = pull(u.UploadedRecipes, recipeID)
		u.SavedRecipes = pull(u.SavedRecipes, recipeID)
	}
	return nil
}

func (r *stubUserRepo) AddSavedRecipe(_ context.Context, userID, recipeID string) error {
	u, err := r.get(userID)
	if err != nil {
		return err
	}
	u.SavedRecipes = addToSet(u.SavedRecipes, recipeID)
	return nil
}

func (r *stubUserRepo) RemoveSavedRecipe(_ context.Context, userID, recipeID string) error {
	u, err := r.get(userID)
	if err != nil {
		return err
	}
	u.SavedRecipes = pull(u.SavedRecipes, recipeID)
	return nil
}

func (r *stubUserRepo) Follow(_ context.Context, userID, targetID string) error {
	u, err := r.get(userID)
	if err != nil {
		return err
	}
	t, err := r.get(targetID)
	if err != nil {
		return err
	}
	u.Following = addToSet(u.Following, targetID)
	t.Followers = addToSet(t.Followers, userID)
	return nil
}

func (r *stubUserRepo) Unfollow(_ context.Context, userID, targetID string) error {
	u, err := r.get(userID)
	if err != nil {
		return err
	}
	t, err := r.get(targetID)
	if err != nil {
		return err
	}
	u.Following = pull(u.Following, targetID)
	t.Followers = pull(t.Followers, userID)
	return nil
}

// ---------------------------------------------------------------------------
// recipes
// ---------------------------------------------------------------------------

type stubRecipeRepo struct {
	mu      sync.Mutex
	recipes map[string]*domain.Recipe
	nextID  int
	now     func() time.Time
}

func newStubRecipeRepo() *stubRecipeRepo {
	return &stubRecipeRepo{
		recipes: make(map[string]*domain.Recipe),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func cloneRecipe(r *domain.Recipe) *domain.Recipe {
	if r == nil {
		return nil
	}
	c := *r
	c.Ratings = append([]domain.Rating(nil), r.Ratings...)
	c.Likes = append([]string(nil), r.Likes...)
	c.Tags = append([]string(nil), r.Tags...)
	c.Ingredients = append([]domain.Ingredient(nil), r.Ingredients...)
	return &c
}

func (r *stubRecipeRepo) Create(_ context.Context, rec *domain.Recipe) (*domain.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	prepared := domain.PrepareForPersist(*rec, r.now())
	prepared.ID = fmt.Sprintf("recipe-%03d", r.nextID)
	prepared.Version = 1
	r.recipes[prepared.ID] = &prepared
	return cloneRecipe(&prepared), nil
}

func (r *stubRecipeRepo) FindByID(_ context.Context, id string) (*domain.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recipes[id]
	if !ok {
		return nil, domain.ErrRecipeNotFound
	}
	return cloneRecipe(rec), nil
}

func (r *stubRecipeRepo) FindByIDs(_ context.Context, ids []string) ([]*domain.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Recipe, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.recipes[id]; ok {
			out = append(out, cloneRecipe(rec))
		}
	}
	return out, nil
}

func (r *stubRecipeRepo) Mutate(_ context.Context, id string, fn ports.RecipeMutation) (*domain.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recipes[id]
	if !ok {
		return nil, domain.ErrRecipeNotFound
	}
	work := cloneRecipe(rec)
	if err := fn(work); err != nil {
		return nil, err
	}
	prepared := domain.PrepareForPersist(*work, r.now())
	prepared.Version = rec.Version + 1
	r.recipes[id] = &prepared
	return cloneRecipe(&prepared), nil
}

func (r *stubRecipeRepo) IncrementViews(_ context.Context, id string) (*domain.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recipes[id]
	if !ok {
		return nil, domain.ErrRecipeNotFound
	}
	rec.Views++
	return cloneRecipe(rec), nil
}

func (r *stubRecipeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recipes[id]; !ok {
		return domain.ErrRecipeNotFound
	}
	delete(r.recipes, id)
	return nil
}

func (r *stubRecipeRepo) listed() []*domain.Recipe {
	out := make([]*domain.Recipe, 0, len(r.recipes))
	for _, rec := range r.recipes {
		if rec.IsListed() {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *stubRecipeRepo) List(_ context.Context, q ports.RecipeQuery) ([]*domain.Recipe, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Recipe
	for _, rec := range r.listed() {
		if q.Filter.Category != "" && q.Filter.Category != domain.CategoryAll && rec.Category != q.Filter.Category {
			continue
		}
		if q.Filter.Difficulty != "" && rec.Difficulty != q.Filter.Difficulty {
			continue
		}
		matched = append(matched, rec)
	}
	total := int64(len(matched))
	skip := len(matched)
	if q.Page-1 < (len(matched)+q.Limit-1)/q.Limit {
		skip = (q.Page - 1) * q.Limit
	}
	end := skip + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]*domain.Recipe, 0, end-skip)
	for _, rec := range matched[skip:end] {
		out = append(out, cloneRecipe(rec))
	}
	return out, total, nil
}

func (r *stubRecipeRepo) Popular(_ context.Context, limit int) ([]*domain.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listed := r.listed()
	sort.SliceStable(listed, func(i, j int) bool { return listed[i].AverageRating > listed[j].AverageRating })
	if len(listed) > limit {
		listed = listed[:limit]
	}
	out := make([]*domain.Recipe, 0, len(listed))
	for _, rec := range listed {
		out = append(out, cloneRecipe(rec))
	}
	return out, nil
}

func (r *stubRecipeRepo) FindByIngredient(_ context.Context, name string, limit int) ([]*domain.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Recipe
	for _, rec := range r.listed() {
		for _, ing := range rec.Ingredients {
			if strings.Contains(strings.ToLower(ing.Name), strings.ToLower(name)) {
				out = append(out, cloneRecipe(rec))
				break
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// meal plans, cache, mail
// ---------------------------------------------------------------------------

type stubMealPlanRepo struct {
	plans map[string]*domain.MealPlan
	// beforeSave runs ahead of each version check, letting tests land a
	// competing write between load and save.
	beforeSave func(r *stubMealPlanRepo, plan *domain.MealPlan)
	saves      int
}

func newStubMealPlanRepo() *stubMealPlanRepo {
	return &stubMealPlanRepo{plans: make(map[string]*domain.MealPlan)}
}

func planKey(owner string, week time.Time) string {
	return owner + "|" + week.Format(time.RFC3339)
}

func (r *stubMealPlanRepo) FindByWeek(_ context.Context, owner string, weekStart time.Time) (*domain.MealPlan, error) {
	p, ok := r.plans[planKey(owner, weekStart)]
	if !ok {
		return nil, domain.ErrMealPlanNotFound
	}
	c := *p
	c.Entries = append([]domain.MealEntry(nil), p.Entries...)
	return &c, nil
}

func (r *stubMealPlanRepo) Save(_ context.Context, plan *domain.MealPlan) (*domain.MealPlan, error) {
	if hook := r.beforeSave; hook != nil {
		r.beforeSave = nil
		hook(r, plan)
	}
	r.saves++

	key := planKey(plan.Owner, plan.WeekStart)
	var stored int64
	if cur, ok := r.plans[key]; ok {
		stored = cur.Version
	}
	if stored != plan.Version {
		return nil, domain.ErrConflict
	}

	c := *plan
	c.Entries = append([]domain.MealEntry(nil), plan.Entries...)
	c.Version++
	if c.ID == "" {
		c.ID = key
	}
	r.plans[key] = &c
	out := c
	return &out, nil
}

type stubPopularCache struct {
	entries     map[int][]*domain.Recipe
	invalidated int
}

func newStubPopularCache() *stubPopularCache {
	return &stubPopularCache{entries: make(map[int][]*domain.Recipe)}
}

func (c *stubPopularCache) GetPopular(_ context.Context, limit int) ([]*domain.Recipe, bool, error) {
	v, ok := c.entries[limit]
	return v, ok, nil
}

func (c *stubPopularCache) SetPopular(_ context.Context, limit int, recipes []*domain.Recipe) error {
	c.entries[limit] = recipes
	return nil
}

func (c *stubPopularCache) InvalidatePopular(context.Context) error {
	c.entries = make(map[int][]*domain.Recipe)
	c.invalidated++
	return nil
}

type sentMail struct {
	email, username, token string
}

type stubMailer struct {
	sent []sentMail
}

func (m *stubMailer) SendPasswordReset(_ context.Context, email, username, token string) error {
	m.sent = append(m.sent, sentMail{email: email, username: username, token: token})
	return nil
}
