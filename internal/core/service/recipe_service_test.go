package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

func ptr[T any](v T) *T { return &v }

func soupInput() ports.RecipeInput {
	return ports.RecipeInput{
		Title:        ptr("Tomato Soup"),
		Description:  ptr("Simple and warm."),
		Category:     ptr("lunch"),
		Ingredients:  ptr([]domain.Ingredient{{Name: "Tomato", Quantity: 4, Unit: "pieces"}}),
		Instructions: ptr([]domain.Instruction{{StepNumber: 1, Description: "Simmer."}}),
		PrepTime:     ptr(10),
		CookingTime:  ptr(20),
		Difficulty:   ptr("Easy"),
		Servings:     ptr(2),
		Tags:         ptr([]string{"Soup"}),
	}
}

type recipeFixture struct {
	users   *stubUserRepo
	recipes *stubRecipeRepo
	cache   *stubPopularCache
	svc     *RecipeService
	author  *domain.User
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	t.Helper()
	users := newStubUserRepo()
	recipes := newStubRecipeRepo()
	cache := newStubPopularCache()
	author, err := users.Create(context.Background(), &domain.User{Username: "chef", Email: "chef@example.com", Role: domain.RoleUser, IsActive: true})
	if err != nil {
		t.Fatalf("seed author: %v", err)
	}
	return &recipeFixture{
		users:   users,
		recipes: recipes,
		cache:   cache,
		svc:     NewRecipeService(recipes, users, cache, discardLogger),
		author:  author,
	}
}

func (f *recipeFixture) actor() ports.Actor {
	return ports.Actor{UserID: f.author.ID, Role: domain.RoleUser}
}

func (f *recipeFixture) create(t *testing.T) *domain.Recipe {
	t.Helper()
	r, err := f.svc.CreateRecipe(context.Background(), f.actor(), soupInput())
	if err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	return r
}

// ---------------------------------------------------------------------------
// CRUD
// ---------------------------------------------------------------------------

func TestRecipeService_Create_LinksAuthor(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.create(t)

	if r.Author != f.author.ID || !r.IsApproved || !r.IsPublished {
		t.Fatalf("unexpected defaults: %+v", r)
	}
	if r.TotalTime != 30 {
		t.Fatalf("expected derived totalTime 30, got %d", r.TotalTime)
	}
	if len(r.Tags) != 1 || r.Tags[0] != "soup" {
		t.Fatalf("expected lowercased tags, got %v", r.Tags)
	}
	if uploaded := f.users.users[f.author.ID].UploadedRecipes; len(uploaded) != 1 || uploaded[0] != r.ID {
		t.Fatalf("expected author's uploaded list to contain %s, got %v", r.ID, uploaded)
	}
	if f.cache.invalidated != 1 {
		t.Fatalf("expected popular cache invalidation")
	}
}

func TestRecipeService_Create_Validation(t *testing.T) {
	f := newRecipeFixture(t)
	in := soupInput()
	in.Servings = ptr(0)

	_, err := f.svc.CreateRecipe(context.Background(), f.actor(), in)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.recipes.recipes) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

type failingLinkRepo struct {
	*stubUserRepo
}

func (r failingLinkRepo) AddUploadedRecipe(context.Context, string, string) error {
	return errors.New("users collection unavailable")
}

func TestRecipeService_Create_RollsBackOnLinkFailure(t *testing.T) {
	f := newRecipeFixture(t)
	svc := NewRecipeService(f.recipes, failingLinkRepo{f.users}, nil, discardLogger)

	if _, err := svc.CreateRecipe(context.Background(), f.actor(), soupInput()); err == nil {
		t.Fatalf("expected error")
	}
	if len(f.recipes.recipes) != 0 {
		t.Fatalf("expected recipe to be rolled back, found %d", len(f.recipes.recipes))
	}
}

func TestRecipeService_Get_CountsViewsAndHidesUnlisted(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.create(t)

	got, err := f.svc.GetRecipe(context.Background(), ports.Actor{}, r.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if got.Views != 1 {
		t.Fatalf("expected 1 view, got %d", got.Views)
	}

	if _, err := f.svc.UpdateRecipe(context.Background(), f.actor(), r.ID, ports.RecipeInput{IsPublished: ptr(false)}); err != nil {
		t.Fatalf("UpdateRecipe: %v", err)
	}
	if _, err := f.svc.GetRecipe(context.Background(), ports.Actor{UserID: "stranger"}, r.ID); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Fatalf("expected unlisted recipe to be hidden, got %v", err)
	}
	if _, err := f.svc.GetRecipe(context.Background(), f.actor(), r.ID); err != nil {
		t.Fatalf("author should see own draft: %v", err)
	}
}

func TestRecipeService_Update_Permissions(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.create(t)

	_, err := f.svc.UpdateRecipe(context.Background(), ports.Actor{UserID: "intruder", Role: domain.RoleUser}, r.ID, ports.RecipeInput{Title: ptr("Hijacked")})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	updated, err := f.svc.UpdateRecipe(context.Background(), ports.Actor{UserID: "moderator", Role: domain.RoleAdmin}, r.ID, ports.RecipeInput{CookingTime: ptr(40)})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.TotalTime != 50 || updated.Title != "Tomato Soup" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if _, err := f.svc.UpdateRecipe(context.Background(), f.actor(), "missing", ports.RecipeInput{}); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestRecipeService_Delete_UnlinksUsers(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.create(t)
	fan, _ := f.users.Create(context.Background(), &domain.User{Username: "fan", Email: "fan@example.com"})
	_ = f.users.AddSavedRecipe(context.Background(), fan.ID, r.ID)

	if err := f.svc.DeleteRecipe(context.Background(), ports.Actor{UserID: fan.ID, Role: domain.RoleUser}, r.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-author, got %v", err)
	}
	if err := f.svc.DeleteRecipe(context.Background(), f.actor(), r.ID); err != nil {
		t.Fatalf("DeleteRecipe: %v", err)
	}
	if len(f.users.users[f.author.ID].UploadedRecipes) != 0 || len(f.users.users[fan.ID].SavedRecipes) != 0 {
		t.Fatalf("expected references to be pulled")
	}
	if _, err := f.recipes.FindByID(context.Background(), r.ID); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Fatalf("expected recipe to be gone, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Ratings and likes
// ---------------------------------------------------------------------------

func TestRecipeService_AddRating_Average(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.create(t)

	var last *domain.Recipe
	for i, score := range []int{5, 3, 4} {
		var err error
		last, err = f.svc.AddRating(context.Background(), r.ID, fmt.Sprintf("rater-%d", i), score, "")
		if err != nil {
			t.Fatalf("AddRating: %v", err)
		}
	}
	if last.AverageRating != 4.0 || last.TotalRatings != 3 {
		t.Fatalf("expected 4.0 over 3 ratings, got %.1f over %d", last.AverageRating, last.TotalRatings)
	}

	rerated, err := f.svc.AddRating(context.Background(), r.ID, "rater-1", 5, "better second time")
	if err != nil {
		t.Fatalf("re-rate: %v", err)
	}
	if rerated.TotalRatings != 3 {
		t.Fatalf("re-rating must replace, got %d ratings", rerated.TotalRatings)
	}
	if rerated.AverageRating != 4.7 {
		t.Fatalf("expected 4.7 after re-rating, got %.1f", rerated.AverageRating)
	}
}

func TestRecipeService_AddRating_Invalid(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.create(t)

	if _, err := f.svc.AddRating(context.Background(), r.ID, "u1", 6, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.AddRating(context.Background(), "missing", "u1", 4, ""); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestRecipeService_AddRating_ConcurrentRatersAllKept(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.create(t)
	svc := NewRecipeService(f.recipes, f.users, nil, discardLogger)

	const raters = 20
	var wg sync.WaitGroup
	for i := 0; i < raters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.AddRating(context.Background(), r.ID, fmt.Sprintf("u%d", i), 1+i%5, ""); err != nil {
				t.Errorf("AddRating: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := f.recipes.FindByID(context.Background(), r.ID)
	if got.TotalRatings != raters {
		t.Fatalf("expected %d ratings, got %d", raters, got.TotalRatings)
	}
	if got.AverageRating != 3.0 {
		t.Fatalf("expected average 3.0, got %.1f", got.AverageRating)
	}
}

func TestRecipeService_ToggleLike_TwiceRestores(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.create(t)

	after1, liked, err := f.svc.ToggleLike(context.Background(), r.ID, "u1")
	if err != nil || !liked || len(after1.Likes) != 1 {
		t.Fatalf("first toggle: liked=%v likes=%v err=%v", liked, after1.Likes, err)
	}
	after2, liked, err := f.svc.ToggleLike(context.Background(), r.ID, "u1")
	if err != nil || liked || len(after2.Likes) != 0 {
		t.Fatalf("second toggle: liked=%v likes=%v err=%v", liked, after2.Likes, err)
	}
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

func TestRecipeService_ListRecipes_Pagination(t *testing.T) {
	f := newRecipeFixture(t)
	for i := 0; i < 25; i++ {
		f.create(t)
	}
	// an unapproved recipe never shows up
	hidden := f.create(t)
	if _, err := f.svc.SetApproval(context.Background(), hidden.ID, false); err != nil {
		t.Fatalf("SetApproval: %v", err)
	}

	page1, err := f.svc.ListRecipes(context.Background(), ports.ListRecipesInput{Page: 1, Limit: 12})
	if err != nil {
		t.Fatalf("ListRecipes: %v", err)
	}
	if len(page1.Items) != 12 || page1.TotalCount != 25 || page1.TotalPages != 3 {
		t.Fatalf("page 1: items=%d total=%d pages=%d", len(page1.Items), page1.TotalCount, page1.TotalPages)
	}
	if !page1.HasNextPage || page1.HasPrevPage {
		t.Fatalf("page 1: unexpected next/prev %v/%v", page1.HasNextPage, page1.HasPrevPage)
	}

	page3, err := f.svc.ListRecipes(context.Background(), ports.ListRecipesInput{Page: 3, Limit: 12})
	if err != nil {
		t.Fatalf("ListRecipes: %v", err)
	}
	if len(page3.Items) != 1 || page3.HasNextPage || !page3.HasPrevPage {
		t.Fatalf("page 3: items=%d next=%v prev=%v", len(page3.Items), page3.HasNextPage, page3.HasPrevPage)
	}
}

func TestRecipeService_ListRecipes_PagePastTheEnd(t *testing.T) {
	f := newRecipeFixture(t)
	f.create(t)

	page, err := f.svc.ListRecipes(context.Background(), ports.ListRecipesInput{Page: 92233720368547759, Limit: 100})
	if err != nil {
		t.Fatalf("ListRecipes: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 || page.HasNextPage || !page.HasPrevPage {
		t.Fatalf("unexpected page: items=%d next=%v prev=%v", len(page.Items), page.HasNextPage, page.HasPrevPage)
	}
}

func TestNormalizeListInput(t *testing.T) {
	q := NormalizeListInput(ports.ListRecipesInput{Page: 0, Limit: 500, SortBy: "password", SortOrder: "ASC"})
	if q.Page != 1 || q.Limit != 100 || q.SortBy != "createdAt" || q.SortDesc {
		t.Fatalf("unexpected normalization: %+v", q)
	}

	q = NormalizeListInput(ports.ListRecipesInput{SortBy: "averageRating"})
	if q.Limit != 12 || q.SortBy != "averageRating" || !q.SortDesc {
		t.Fatalf("unexpected defaults: %+v", q)
	}
}

func TestRecipeService_Popular_UsesCache(t *testing.T) {
	f := newRecipeFixture(t)
	f.create(t)

	first, err := f.svc.Popular(context.Background(), 0)
	if err != nil || len(first) != 1 {
		t.Fatalf("Popular: %v %d", err, len(first))
	}
	if _, ok := f.cache.entries[defaultPopular]; !ok {
		t.Fatalf("expected popular list to be cached")
	}

	// cached result is served even after the store changes
	f.recipes.recipes = map[string]*domain.Recipe{}
	second, _ := f.svc.Popular(context.Background(), 0)
	if len(second) != 1 {
		t.Fatalf("expected cached result, got %d", len(second))
	}
}

func TestRecipeService_FindByIngredient(t *testing.T) {
	f := newRecipeFixture(t)
	f.create(t)

	if _, err := f.svc.FindByIngredient(context.Background(), "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	found, err := f.svc.FindByIngredient(context.Background(), "TOMA")
	if err != nil || len(found) != 1 {
		t.Fatalf("expected one match, got %d (%v)", len(found), err)
	}
}

var (
	_ ports.RecipeService = (*RecipeService)(nil)
	_ ports.AuthService   = (*AuthService)(nil)
)
