package repository

import (
	"context"
	"fmt"
	"slices"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/platform/filestore"
)

// RecipeRepository keeps recipes newest first.
type RecipeRepository interface {
	// FindAll returns the collection with defaults backfilled. On a storage
	// error it still returns an empty, non-nil slice alongside the error.
	FindAll(ctx context.Context) ([]model.Recipe, error)
	FindByID(ctx context.Context, id string) (*model.Recipe, error)
	// Create prepends recipe. It fails with common.ErrConflict if the id is taken.
	Create(ctx context.Context, recipe *model.Recipe) error
	// Update applies fn to the recipe with the given id and persists the
	// collection. It returns common.ErrNotFound without writing if id is absent.
	Update(ctx context.Context, id string, fn func(*model.Recipe)) (*model.Recipe, error)
	// Delete reports whether a recipe was removed. Nothing is written when
	// id is absent.
	Delete(ctx context.Context, id string) (bool, error)
	EnsureStorage() error
}

type jsonRecipeRepository struct {
	store *filestore.Store[model.Recipe]
}

func NewJSONRecipeRepository(path string) RecipeRepository {
	return &jsonRecipeRepository{
		store: filestore.New(path, filestore.WithBackfill((*model.Recipe).Backfill)),
	}
}

func (r *jsonRecipeRepository) EnsureStorage() error {
	return r.store.EnsureFile()
}

func (r *jsonRecipeRepository) FindAll(ctx context.Context) ([]model.Recipe, error) {
	if err := ctx.Err(); err != nil {
		return []model.Recipe{}, err
	}
	recipes, err := r.store.Load()
	if err != nil {
		return recipes, fmt.Errorf("jsonRecipeRepository.FindAll: %w", err)
	}
	return recipes, nil
}

func (r *jsonRecipeRepository) FindByID(ctx context.Context, id string) (*model.Recipe, error) {
	recipes, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(recipes, id)
	if i < 0 {
		return nil, common.ErrNotFound
	}
	return &recipes[i], nil
}

func (r *jsonRecipeRepository) Create(ctx context.Context, recipe *model.Recipe) error {
	recipes, err := r.FindAll(ctx)
	if err != nil {
		return err
	}
	if indexOf(recipes, recipe.ID) >= 0 {
		return fmt.Errorf("recipe id %s already exists: %w", recipe.ID, common.ErrConflict)
	}

	recipes = slices.Insert(recipes, 0, *recipe)
	if err := r.store.Save(recipes); err != nil {
		return fmt.Errorf("jsonRecipeRepository.Create: %w", err)
	}
	return nil
}

func (r *jsonRecipeRepository) Update(ctx context.Context, id string, fn func(*model.Recipe)) (*model.Recipe, error) {
	recipes, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(recipes, id)
	if i < 0 {
		return nil, common.ErrNotFound
	}

	fn(&recipes[i])
	if err := r.store.Save(recipes); err != nil {
		return nil, fmt.Errorf("jsonRecipeRepository.Update: %w", err)
	}
	updated := recipes[i]
	return &updated, nil
}

func (r *jsonRecipeRepository) Delete(ctx context.Context, id string) (bool, error) {
	recipes, err := r.FindAll(ctx)
	if err != nil {
		return false, err
	}
	i := indexOf(recipes, id)
	if i < 0 {
		return false, nil
	}
	if err := r.store.Save(slices.Delete(recipes, i, i+1)); err != nil {
		return false, fmt.Errorf("jsonRecipeRepository.Delete: %w", err)
	}
	return true, nil
}

func indexOf(recipes []model.Recipe, id string) int {
	return slices.IndexFunc(recipes, func(rec model.Recipe) bool {
		return rec.ID == id
	})
}
