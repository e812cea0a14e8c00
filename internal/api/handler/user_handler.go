package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

// UserHandler serves saved recipes, follows and public profiles.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// ToggleSave handles POST /api/users/save-recipe/:id.
//
// @Summary      Save or unsave a recipe
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recipe id"
// @Success      200  {object}  savedResponse
// @Failure      404  {object}  map[string]any
// @Router       /api/users/save-recipe/{id} [post]
func (h *UserHandler) ToggleSave(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	saved, err := h.service.ToggleSavedRecipe(c.Request().Context(), actor.UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, savedResponse{Saved: saved})
}

// Saved handles GET /api/users/saved-recipes.
//
// @Summary      Saved recipes of the current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  recipesResponse
// @Router       /api/users/saved-recipes [get]
func (h *UserHandler) Saved(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	recipes, err := h.service.SavedRecipes(c.Request().Context(), actor.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recipesResponse{Recipes: nonNilRecipes(recipes)})
}

// Profile handles GET /api/users/:id.
//
// @Summary      Public user profile
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  publicProfileResponse
// @Failure      404  {object}  map[string]any
// @Router       /api/users/{id} [get]
func (h *UserHandler) Profile(c echo.Context) error {
	profile, err := h.service.PublicProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, publicProfileResponse{User: profile})
}

// ToggleFollow handles POST /api/users/:id/follow.
//
// @Summary      Follow or unfollow a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  followResponse
// @Failure      400  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Router       /api/users/{id}/follow [post]
func (h *UserHandler) ToggleFollow(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	following, err := h.service.ToggleFollow(c.Request().Context(), actor.UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, followResponse{Following: following})
}
