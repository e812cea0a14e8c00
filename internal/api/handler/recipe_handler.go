package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/smartrecipehub/recipe-hub/internal/api/metrics"
	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

const (
	formFieldRecipe = "recipe"
	formFieldImages = "images"
	maxImagesPerReq = 10
)

// ImageStore persists uploaded images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, r io.Reader) (url string, size int64, err error)
	Remove(url string) error
}

// RecipeHandler handles HTTP requests for recipe operations.
type RecipeHandler struct {
	service ports.RecipeService
	images  ImageStore
	log     zerolog.Logger
}

// NewRecipeHandler returns a RecipeHandler. images may be nil, in which case
// multipart uploads are rejected.
func NewRecipeHandler(service ports.RecipeService, images ImageStore, log zerolog.Logger) *RecipeHandler {
	return &RecipeHandler{service: service, images: images, log: log}
}

// List handles GET /api/recipes.
//
// @Summary      List recipes
// @Tags         recipes
// @Produce      json
// @Param        page        query     int     false  "Page (default 1)"
// @Param        limit       query     int     false  "Page size (default 12, max 100)"
// @Param        category    query     string  false  "Category or 'all'"
// @Param        dietary     query     string  false  "Comma-separated dietary tags (match any)"
// @Param        difficulty  query     string  false  "Easy, Medium or Hard"
// @Param        author      query     string  false  "Author id"
// @Param        search      query     string  false  "Free text over title, description, ingredients and tags"
// @Param        sortBy      query     string  false  "createdAt, averageRating, views, totalTime, title or totalRatings"
// @Param        sortOrder   query     string  false  "asc or desc (default desc)"
// @Success      200         {object}  recipeListResponse
// @Failure      400         {object}  map[string]any
// @Router       /api/recipes [get]
func (h *RecipeHandler) List(c echo.Context) error {
	var req listRecipesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	page, err := h.service.ListRecipes(c.Request().Context(), toListInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(page))
}

// Popular handles GET /api/recipes/popular.
//
// @Summary      Most popular recipes
// @Tags         recipes
// @Produce      json
// @Param        limit  query     int  false  "Number of recipes (default 10, max 50)"
// @Success      200    {object}  recipesResponse
// @Router       /api/recipes/popular [get]
func (h *RecipeHandler) Popular(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	recipes, err := h.service.Popular(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recipesResponse{Recipes: nonNilRecipes(recipes)})
}

// ByIngredient handles GET /api/recipes/by-ingredient.
//
// @Summary      Find recipes by ingredient
// @Tags         recipes
// @Produce      json
// @Param        name  query     string  true  "Ingredient name (case-insensitive substring)"
// @Success      200   {object}  recipesResponse
// @Failure      400   {object}  map[string]any
// @Router       /api/recipes/by-ingredient [get]
func (h *RecipeHandler) ByIngredient(c echo.Context) error {
	recipes, err := h.service.FindByIngredient(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recipesResponse{Recipes: nonNilRecipes(recipes)})
}

// Get handles GET /api/recipes/:id and counts a view.
//
// @Summary      Get a recipe
// @Tags         recipes
// @Produce      json
// @Param        id   path      string  true  "Recipe id"
// @Success      200  {object}  recipeResponse
// @Failure      404  {object}  map[string]any
// @Router       /api/recipes/{id} [get]
func (h *RecipeHandler) Get(c echo.Context) error {
	recipe, err := h.service.GetRecipe(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recipeResponse{Recipe: recipe})
}

// Create handles POST /api/recipes. The body is either JSON or multipart
// with the JSON payload in the "recipe" field and files in "images".
//
// @Summary      Create a recipe
// @Tags         recipes
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      recipeRequest  true  "Recipe"
// @Success      201   {object}  recipeResponse
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]any
// @Failure      413   {object}  map[string]any
// @Router       /api/recipes [post]
func (h *RecipeHandler) Create(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	req, uploaded, err := h.readRecipe(c)
	if err != nil {
		return err
	}

	recipe, err := h.service.CreateRecipe(c.Request().Context(), actor, toRecipeInput(req))
	if err != nil {
		h.discard(uploaded)
		return err
	}

	metrics.RecipesCreatedTotal.WithLabelValues(recipe.Category).Inc()
	return c.JSON(http.StatusCreated, recipeResponse{Recipe: recipe})
}

// Update handles PUT /api/recipes/:id. Only the author or an admin may edit.
//
// @Summary      Update a recipe
// @Tags         recipes
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Recipe id"
// @Param        body  body      recipeRequest  true  "Fields to change"
// @Success      200   {object}  recipeResponse
// @Failure      400   {object}  map[string]any
// @Failure      403   {object}  map[string]any
// @Failure      404   {object}  map[string]any
// @Failure      409   {object}  map[string]any
// @Router       /api/recipes/{id} [put]
func (h *RecipeHandler) Update(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	req, uploaded, err := h.readRecipe(c)
	if err != nil {
		return err
	}

	recipe, err := h.service.UpdateRecipe(c.Request().Context(), actor, c.Param("id"), toRecipeInput(req))
	if err != nil {
		h.discard(uploaded)
		return err
	}
	return c.JSON(http.StatusOK, recipeResponse{Recipe: recipe})
}

// Delete handles DELETE /api/recipes/:id.
//
// @Summary      Delete a recipe
// @Tags         recipes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recipe id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Router       /api/recipes/{id} [delete]
func (h *RecipeHandler) Delete(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteRecipe(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Recipe deleted successfully"})
}

// Rate handles POST /api/recipes/:id/rate.
//
// @Summary      Rate a recipe
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string       true  "Recipe id"
// @Param        body  body      rateRequest  true  "Rating 1-5 and optional review"
// @Success      200   {object}  recipeResponse
// @Failure      400   {object}  map[string]any
// @Failure      404   {object}  map[string]any
// @Failure      409   {object}  map[string]any
// @Router       /api/recipes/{id}/rate [post]
func (h *RecipeHandler) Rate(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	var req rateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	recipe, err := h.service.AddRating(c.Request().Context(), c.Param("id"), actor.UserID, req.Rating, req.Review)
	if err != nil {
		return err
	}

	metrics.RatingsTotal.Inc()
	return c.JSON(http.StatusOK, recipeResponse{Recipe: recipe})
}

// Like handles POST /api/recipes/:id/like, toggling the caller's like.
//
// @Summary      Like or unlike a recipe
// @Tags         recipes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recipe id"
// @Success      200  {object}  likeResponse
// @Failure      404  {object}  map[string]any
// @Router       /api/recipes/{id}/like [post]
func (h *RecipeHandler) Like(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	recipe, liked, err := h.service.ToggleLike(c.Request().Context(), c.Param("id"), actor.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, likeResponse{Recipe: recipe, Liked: liked})
}

// readRecipe decodes a recipe payload from JSON or multipart form data and
// stores any attached images. The returned URLs are already merged into the
// request and are reported separately so they can be discarded on failure.
func (h *RecipeHandler) readRecipe(c echo.Context) (recipeRequest, []string, error) {
	var req recipeRequest

	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		if err := bindAndValidate(c, &req); err != nil {
			return req, nil, err
		}
		return req, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		var he *echo.HTTPError
		var tooLarge *http.MaxBytesError
		if errors.As(err, &he) || errors.As(err, &tooLarge) {
			return req, nil, err
		}
		return req, nil, domain.NewValidationError("body", "invalid multipart form")
	}
	if raw := form.Value[formFieldRecipe]; len(raw) > 0 && strings.TrimSpace(raw[0]) != "" {
		if err := json.Unmarshal([]byte(raw[0]), &req); err != nil {
			return req, nil, domain.NewValidationError(formFieldRecipe, "recipe must be a valid JSON object")
		}
	}
	if err := c.Validate(&req); err != nil {
		return req, nil, err
	}

	files := form.File[formFieldImages]
	if len(files) == 0 {
		return req, nil, nil
	}
	if h.images == nil {
		return req, nil, domain.NewValidationError(formFieldImages, "image uploads are not enabled")
	}
	if len(files) > maxImagesPerReq {
		return req, nil, domain.NewValidationError(formFieldImages, fmt.Sprintf("at most %d images per request", maxImagesPerReq))
	}

	uploaded := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := h.store(c.Request().Context(), fh)
		if err != nil {
			h.discard(uploaded)
			return req, nil, err
		}
		uploaded = append(uploaded, url)
	}

	var images []string
	if req.Images != nil {
		images = append(images, *req.Images...)
	}
	images = append(images, uploaded...)
	req.Images = &images

	return req, uploaded, nil
}

func (h *RecipeHandler) store(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	url, size, err := h.images.Save(ctx, f)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return "", err
	}
	metrics.UploadsTotal.WithLabelValues("stored").Inc()
	metrics.UploadBytes.Observe(float64(size))
	return url, nil
}

// discard removes files stored for a request that did not complete.
func (h *RecipeHandler) discard(urls []string) {
	for _, u := range urls {
		if err := h.images.Remove(u); err != nil {
			h.log.Warn().Err(err).Str("url", u).Msg("failed to remove orphaned upload")
		}
	}
}
