package service

import (
	"context"
	"errors"
	"testing"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

func TestUserService_ToggleSavedRecipe(t *testing.T) {
	f := newRecipeFixture(t)
	first := f.create(t)
	second := f.create(t)
	svc := NewUserService(f.users, f.recipes, discardLogger)
	ctx := context.Background()

	for _, id := range []string{second.ID, first.ID} {
		saved, err := svc.ToggleSavedRecipe(ctx, f.author.ID, id)
		if err != nil || !saved {
			t.Fatalf("save %s: saved=%v err=%v", id, saved, err)
		}
	}

	list, err := svc.SavedRecipes(ctx, f.author.ID)
	if err != nil {
		t.Fatalf("SavedRecipes: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected saved order to be preserved, got %v", list)
	}

	saved, err := svc.ToggleSavedRecipe(ctx, f.author.ID, second.ID)
	if err != nil || saved {
		t.Fatalf("unsave: saved=%v err=%v", saved, err)
	}

	if _, err := svc.ToggleSavedRecipe(ctx, f.author.ID, "missing"); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestUserService_SavedRecipes_SkipsDeleted(t *testing.T) {
	f := newRecipeFixture(t)
	r := f.create(t)
	svc := NewUserService(f.users, f.recipes, discardLogger)
	_, _ = svc.ToggleSavedRecipe(context.Background(), f.author.ID, r.ID)
	delete(f.recipes.recipes, r.ID)

	list, err := svc.SavedRecipes(context.Background(), f.author.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %d (%v)", len(list), err)
	}
}

func TestUserService_ToggleFollow(t *testing.T) {
	users := newStubUserRepo()
	svc := NewUserService(users, newStubRecipeRepo(), discardLogger)
	ctx := context.Background()
	a, _ := users.Create(ctx, &domain.User{Username: "ann", Email: "ann@example.com", IsActive: true})
	b, _ := users.Create(ctx, &domain.User{Username: "ben", Email: "ben@example.com", IsActive: true})

	following, err := svc.ToggleFollow(ctx, a.ID, b.ID)
	if err != nil || !following {
		t.Fatalf("follow: %v %v", following, err)
	}
	profile, err := svc.PublicProfile(ctx, b.ID)
	if err != nil {
		t.Fatalf("PublicProfile: %v", err)
	}
	if profile.FollowersCount != 1 {
		t.Fatalf("expected 1 follower, got %d", profile.FollowersCount)
	}

	following, err = svc.ToggleFollow(ctx, a.ID, b.ID)
	if err != nil || following {
		t.Fatalf("unfollow: %v %v", following, err)
	}
	if len(users.users[b.ID].Followers) != 0 || len(users.users[a.ID].Following) != 0 {
		t.Fatalf("expected both sides cleared")
	}

	if _, err := svc.ToggleFollow(ctx, a.ID, a.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error on self-follow, got %v", err)
	}
	if _, err := svc.ToggleFollow(ctx, a.ID, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_PublicProfile_HidesInactive(t *testing.T) {
	users := newStubUserRepo()
	svc := NewUserService(users, newStubRecipeRepo(), discardLogger)
	u, _ := users.Create(context.Background(), &domain.User{Username: "gone", Email: "gone@example.com", IsActive: false})

	if _, err := svc.PublicProfile(context.Background(), u.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

var _ ports.UserService = (*UserService)(nil)
