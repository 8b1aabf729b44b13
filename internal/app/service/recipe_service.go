package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/filter"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/domain/repository"
)

// createAttempts bounds id regeneration when a concurrent create takes the id.
const createAttempts = 2

type RecipeService struct {
	recipeRepo repository.RecipeRepository
	logger     *zap.Logger
	now        func() time.Time
	intn       func(n int) int
}

func NewRecipeService(recipeRepo repository.RecipeRepository, logger *zap.Logger) *RecipeService {
	return &RecipeService{
		recipeRepo: recipeRepo,
		logger:     logger,
		now:        time.Now,
		intn:       rand.IntN,
	}
}

// CreateRecipeRequest mirrors the recipe form: ingredients and steps are
// free text with one entry per line.
type CreateRecipeRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Ingredients string `json:"ingredients"`
	Steps       string `json:"steps"`
	Time        string `json:"time"`
	Category    string `json:"category"`
	Calories    string `json:"calories"`
	Image       string `json:"image"`
}

type Stats struct {
	Total      int                    `json:"total"`
	ByCategory map[model.Category]int `json:"by_category"`
	Favorites  int                    `json:"favorites"`
	// Categories are the distinct categories in use, sorted.
	Categories []model.Category `json:"categories"`
}

func (s *RecipeService) Create(ctx context.Context, username string, req CreateRecipeRequest) (*model.Recipe, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	cookTime := strings.TrimSpace(req.Time)
	ingredients := splitLines(req.Ingredients)
	steps := splitLines(req.Steps)
	if title == "" || description == "" || cookTime == "" || len(ingredients) == 0 || len(steps) == 0 {
		return nil, common.Errorf("please fill in all required fields: %w", common.ErrValidation)
	}

	category := model.Category(strings.TrimSpace(req.Category))
	if category == "" {
		category = model.DefaultCategory
	}
	if !category.Valid() {
		return nil, common.Errorf("unknown category %q: %w", req.Category, common.ErrValidation)
	}

	image := strings.TrimSpace(req.Image)
	if image == "" {
		image = model.DefaultImage
	}

	now := s.now()
	recipe := &model.Recipe{
		Title:       title,
		Description: description,
		Ingredients: ingredients,
		Steps:       steps,
		Time:        cookTime,
		Category:    category,
		Calories:    strings.TrimSpace(req.Calories),
		Favorite:    false,
		Image:       image,
		CreatedBy:   username,
		CreatedDate: now.Format(model.CreatedDateLayout),
	}

	// A concurrent writer may claim the id between load and save; the reload
	// on the second attempt sees it and picks the next free id.
	for attempt := 1; ; attempt++ {
		existing, err := s.recipeRepo.FindAll(ctx)
		if err != nil {
			s.logger.Error("Recipe service: refusing to write over unreadable recipes", zap.Error(err))
			return nil, common.Errorf("failed to save recipe: %w", err)
		}
		recipe.ID = uniqueID(existing, now)

		err = s.recipeRepo.Create(ctx, recipe)
		if err == nil {
			break
		}
		if errors.Is(err, common.ErrConflict) {
			if attempt < createAttempts {
				s.logger.Warn("Recipe service: recipe id taken, retrying", zap.String("recipe_id", recipe.ID))
				continue
			}
			err = common.ErrStorage
		}
		s.logger.Error("Recipe service: failed to create recipe", zap.String("title", title), zap.Error(err))
		return nil, common.Errorf("failed to save recipe: %w", err)
	}

	s.logger.Info("Recipe service: recipe created",
		zap.String("recipe_id", recipe.ID),
		zap.String("created_by", username))
	return recipe, nil
}

// uniqueID derives an id from now, moving forward one microsecond at a time
// past ids already in use.
func uniqueID(existing []model.Recipe, now time.Time) string {
	taken := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		taken[r.ID] = struct{}{}
	}
	id := model.NewRecipeID(now)
	for {
		if _, ok := taken[id]; !ok {
			return id
		}
		now = now.Add(time.Microsecond)
		id = model.NewRecipeID(now)
	}
}

func splitLines(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// GetAll returns the stored recipes, newest first. When the file cannot be
// read it returns an empty collection together with the error so the caller
// can show a notice.
func (s *RecipeService) GetAll(ctx context.Context) ([]model.Recipe, error) {
	recipes, err := s.recipeRepo.FindAll(ctx)
	if err != nil {
		s.logger.Warn("Recipe service: serving empty recipe list", zap.Error(err))
	}
	return recipes, err
}

// List applies criteria to GetAll. Storage errors are passed through next to
// an empty result.
func (s *RecipeService) List(ctx context.Context, criteria filter.Criteria) (filter.Result, error) {
	recipes, err := s.GetAll(ctx)
	return filter.Apply(recipes, criteria), err
}

func (s *RecipeService) Get(ctx context.Context, id string) (*model.Recipe, error) {
	return s.recipeRepo.FindByID(ctx, id)
}

// ToggleFavorite flips the favorite flag of the recipe and persists it. found
// is false, with no error, when no recipe has that id.
func (s *RecipeService) ToggleFavorite(ctx context.Context, id string) (recipe *model.Recipe, found bool, err error) {
	recipe, err = s.recipeRepo.Update(ctx, id, func(r *model.Recipe) {
		r.Favorite = !r.Favorite
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, false, nil
		}
		s.logger.Error("Recipe service: failed to toggle favorite", zap.String("recipe_id", id), zap.Error(err))
		return nil, false, common.Errorf("failed to save recipe: %w", err)
	}
	s.logger.Debug("Recipe service: favorite toggled",
		zap.String("recipe_id", id),
		zap.Bool("favorite", recipe.Favorite))
	return recipe, true, nil
}

// Delete removes the recipe. Deleting an unknown id is a no-op.
func (s *RecipeService) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.recipeRepo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("Recipe service: failed to delete recipe", zap.String("recipe_id", id), zap.Error(err))
		return false, common.Errorf("failed to delete recipe: %w", err)
	}
	if removed {
		s.logger.Info("Recipe service: recipe deleted", zap.String("recipe_id", id))
	}
	return removed, nil
}

// Random picks the id of a uniformly chosen recipe.
func (s *RecipeService) Random(ctx context.Context) (string, error) {
	recipes, err := s.recipeRepo.FindAll(ctx)
	if err != nil {
		return "", err
	}
	if len(recipes) == 0 {
		return "", common.Errorf("no recipes yet: %w", common.ErrNotFound)
	}
	return recipes[s.intn(len(recipes))].ID, nil
}

func (s *RecipeService) Stats(ctx context.Context) (*Stats, error) {
	recipes, err := s.GetAll(ctx)

	st := &Stats{
		Total:      len(recipes),
		ByCategory: make(map[model.Category]int),
		Categories: []model.Category{},
	}
	for _, r := range recipes {
		if _, seen := st.ByCategory[r.Category]; !seen {
			st.Categories = append(st.Categories, r.Category)
		}
		st.ByCategory[r.Category]++
		if r.Favorite {
			st.Favorites++
		}
	}
	slices.Sort(st.Categories)
	return st, err
}
