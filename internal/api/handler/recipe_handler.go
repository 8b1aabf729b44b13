package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"recipe_hub/internal/api/middleware"
	"recipe_hub/internal/app/export"
	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/filter"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/platform/session"
)

const storageNotice = "Recipes could not be loaded. Showing an empty list."

type RecipeHandler struct {
	recipeService *service.RecipeService
	views         session.Store
	logger        *zap.Logger
}

func NewRecipeHandler(rs *service.RecipeService, views session.Store, logger *zap.Logger) *RecipeHandler {
	return &RecipeHandler{recipeService: rs, views: views, logger: logger}
}

func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Get("/", h.listRecipes) // GET /api/v1/recipes?q=soup&category=vegan&max_time=30
	r.Post("/", h.createRecipe)
	r.Get("/options", h.options)
	r.Get("/stats", h.stats)
	r.Get("/{recipeID}", h.getRecipe)
	r.Delete("/{recipeID}", h.deleteRecipe)
	r.Post("/{recipeID}/favorite", h.toggleFavorite)
	r.Get("/{recipeID}/pdf", h.exportPDF)
}

type ListResponse struct {
	Recipes []model.Recipe `json:"recipes"`
	Count   int            `json:"count"`
	Notice  string         `json:"notice,omitempty"`
}

type FavoriteResponse struct {
	Found  bool          `json:"found"`
	Recipe *model.Recipe `json:"recipe,omitempty"`
}

type DeleteResponse struct {
	Removed bool `json:"removed"`
}

type StatsResponse struct {
	service.Stats
	Notice string `json:"notice,omitempty"`
}

type OptionsResponse struct {
	Categories     []model.Category `json:"categories"`
	Images         []string         `json:"images"`
	TimePresets    []int            `json:"time_presets"`
	CaloriePresets []int            `json:"calorie_presets"`
}

func (h *RecipeHandler) listRecipes(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	view, err := h.views.Get(r.Context(), username)
	if err != nil {
		h.logger.Warn("Recipe handler: view state unavailable", zap.String("username", username), zap.Error(err))
	}

	criteria, err := criteriaFromQuery(r.URL.Query(), view)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	result, err := h.recipeService.List(r.Context(), criteria)
	resp := ListResponse{Recipes: result.Recipes, Count: result.Count}
	if err != nil {
		resp.Notice = storageNotice
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

// criteriaFromQuery merges query parameters over the stored view. A boolean
// parameter can only switch a filter on.
func criteriaFromQuery(q url.Values, view session.View) (filter.Criteria, error) {
	c := filter.Criteria{
		FavoritesOnly: view.FavoritesOnly || isTrue(q.Get("favorites")),
		VeganOnly:     view.VeganOnly || isTrue(q.Get("vegan")),
		SearchText:    q.Get("q"),
		SelectedID:    view.SelectedID,
	}
	if sel := strings.TrimSpace(q.Get("selected")); sel != "" {
		c.SelectedID = sel
	}

	for _, raw := range q["category"] {
		cat := model.Category(strings.TrimSpace(raw))
		if cat == "" {
			continue
		}
		if !cat.Valid() {
			return c, fmt.Errorf("unknown category %q: %w", raw, common.ErrBadRequest)
		}
		c.Categories = append(c.Categories, cat)
	}

	var err error
	if c.MaxTimeMinutes, err = optionalInt(q, "max_time"); err != nil {
		return c, err
	}
	if c.MaxCalories, err = optionalInt(q, "max_calories"); err != nil {
		return c, err
	}
	return c, nil
}

func optionalInt(q url.Values, name string) (*int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer: %w", name, common.ErrBadRequest)
	}
	return &n, nil
}

func isTrue(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func (h *RecipeHandler) createRecipe(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsernameFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	recipe, err := h.recipeService.Create(r.Context(), username, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, recipe)
}

func (h *RecipeHandler) getRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.recipeService.Get(r.Context(), chi.URLParam(r, "recipeID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, recipe)
}

func (h *RecipeHandler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	recipe, found, err := h.recipeService.ToggleFavorite(r.Context(), chi.URLParam(r, "recipeID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, FavoriteResponse{Found: found, Recipe: recipe})
}

func (h *RecipeHandler) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "recipeID")
	removed, err := h.recipeService.Delete(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	if removed {
		h.unselect(r, id)
	}
	common.RespondWithJSON(w, http.StatusOK, DeleteResponse{Removed: removed})
}

// unselect forgets a deleted recipe that was picked as the random selection.
func (h *RecipeHandler) unselect(r *http.Request, id string) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	view, err := h.views.Get(r.Context(), username)
	if err != nil || view.SelectedID != id {
		return
	}
	view.SelectedID = ""
	if err := h.views.Save(r.Context(), username, view); err != nil {
		h.logger.Warn("Recipe handler: failed to update view state", zap.String("username", username), zap.Error(err))
	}
}

func (h *RecipeHandler) exportPDF(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.recipeService.Get(r.Context(), chi.URLParam(r, "recipeID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.RenderPDF(recipe, &buf); err != nil {
		h.logger.Error("Recipe handler: PDF export failed", zap.String("recipe_id", recipe.ID), zap.Error(err))
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithAttachment(w, "application/pdf", export.Filename(recipe), buf.Bytes())
}

func (h *RecipeHandler) options(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, OptionsResponse{
		Categories:     model.Categories,
		Images:         model.ImageOptions,
		TimePresets:    filter.TimePresets,
		CaloriePresets: filter.CaloriePresets,
	})
}

func (h *RecipeHandler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.recipeService.Stats(r.Context())
	resp := StatsResponse{Stats: *st}
	if err != nil {
		h.logger.Warn("Recipe handler: stats computed over an empty list", zap.Error(err))
		resp.Notice = storageNotice
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
