package repository

import (
	"context"
	"fmt"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/platform/filestore"
)

type UserRepository interface {
	// FindAll returns every stored user. On a storage error it still returns
	// an empty, non-nil slice alongside the error.
	FindAll(ctx context.Context) ([]model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	ReplaceAll(ctx context.Context, users []model.User) error
	EnsureStorage() error
}

type jsonUserRepository struct {
	store *filestore.Store[model.User]
}

func NewJSONUserRepository(path string) UserRepository {
	return &jsonUserRepository{store: filestore.New[model.User](path)}
}

func (r *jsonUserRepository) EnsureStorage() error {
	return r.store.EnsureFile()
}

func (r *jsonUserRepository) FindAll(ctx context.Context) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return []model.User{}, err
	}
	users, err := r.store.Load()
	if err != nil {
		return users, fmt.Errorf("jsonUserRepository.FindAll: %w", err)
	}
	return users, nil
}

// FindByUsername matches case-sensitively.
func (r *jsonUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	users, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *jsonUserRepository) Create(ctx context.Context, user *model.User) error {
	users, err := r.FindAll(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Username == user.Username {
			return fmt.Errorf("username already exists: %w", common.ErrConflict)
		}
	}

	users = append(users, *user)
	if err := r.store.Save(users); err != nil {
		return fmt.Errorf("jsonUserRepository.Create: %w", err)
	}
	return nil
}

func (r *jsonUserRepository) ReplaceAll(ctx context.Context, users []model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.store.Save(users); err != nil {
		return fmt.Errorf("jsonUserRepository.ReplaceAll: %w", err)
	}
	return nil
}
