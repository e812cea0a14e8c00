package handler

import (
	"strings"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

// toRecipeInput maps the request schema onto the service input.
func toRecipeInput(req recipeRequest) ports.RecipeInput {
	in := ports.RecipeInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Cuisine:     req.Cuisine,
		DietaryTags: req.DietaryTags,
		PrepTime:    req.PrepTime,
		CookingTime: req.CookingTime,
		Difficulty:  req.Difficulty,
		Servings:    req.Servings,
		Images:      req.Images,
		VideoURL:    req.VideoURL,
		Tags:        req.Tags,
		IsPremium:   req.IsPremium,
		IsPublished: req.IsPublished,
	}

	if req.Ingredients != nil {
		ings := make([]domain.Ingredient, len(*req.Ingredients))
		for i, ing := range *req.Ingredients {
			ings[i] = domain.Ingredient{Name: strings.TrimSpace(ing.Name), Quantity: ing.Quantity, Unit: ing.Unit}
		}
		in.Ingredients = &ings
	}

	if req.Instructions != nil {
		steps := make([]domain.Instruction, len(*req.Instructions))
		for i, st := range *req.Instructions {
			steps[i] = domain.Instruction{
				StepNumber:  st.StepNumber,
				Description: strings.TrimSpace(st.Description),
				Image:       st.Image,
				VideoURL:    st.VideoURL,
				Timer:       st.Timer,
			}
		}
		in.Instructions = &steps
	}

	if n := req.NutritionInfo; n != nil {
		in.NutritionInfo = &domain.NutritionInfo{
			Calories: n.Calories,
			Protein:  n.Protein,
			Carbs:    n.Carbs,
			Fat:      n.Fat,
			Fiber:    n.Fiber,
			Sugar:    n.Sugar,
			Sodium:   n.Sodium,
		}
	}
	return in
}

// toListInput maps query parameters onto the list input. Dietary tags may be
// given as "dietary" or "dietaryTags", comma separated.
func toListInput(req listRecipesRequest) ports.ListRecipesInput {
	var tags []string
	for _, raw := range []string{req.Dietary, req.DietaryTags} {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	return ports.ListRecipesInput{
		Filter: ports.RecipeFilter{
			Category:    strings.TrimSpace(req.Category),
			DietaryTags: tags,
			Difficulty:  strings.TrimSpace(req.Difficulty),
			Author:      strings.TrimSpace(req.Author),
			Search:      req.Search,
		},
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Page:      req.Page,
		Limit:     req.Limit,
	}
}

func toListResponse(p *ports.RecipePage) recipeListResponse {
	return recipeListResponse{
		Recipes: nonNilRecipes(p.Items),
		Pagination: paginationResponse{
			CurrentPage: p.Page,
			TotalPages:  p.TotalPages,
			TotalCount:  p.TotalCount,
			Limit:       p.Limit,
			HasNextPage: p.HasNextPage,
			HasPrevPage: p.HasPrevPage,
		},
	}
}

func nonNilRecipes(r []*domain.Recipe) []*domain.Recipe {
	if r == nil {
		return []*domain.Recipe{}
	}
	return r
}
