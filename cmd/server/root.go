package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common/security"
	"recipe_hub/internal/domain/repository"
	"recipe_hub/internal/platform/config"
	"recipe_hub/internal/platform/logger"
)

var envFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recipehub",
		Short: "Recipe hub API server",
		Long: `Recipe hub keeps recipes and user accounts in two JSON files and
serves them over a JSON HTTP API.

Available commands:
  serve             - Start the HTTP API (default)
  migrate-passwords - Hash legacy plaintext passwords in the users file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file read before the environment")

	serve := newServeCmd()
	root.AddCommand(serve, newMigrateCmd())
	root.RunE = serve.RunE
	return root
}

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	users   repository.UserRepository
	recipes repository.RecipeRepository
	tokens  *security.TokenIssuer
	auth    *service.AuthService
	catalog *service.RecipeService
}

func loadApp() (*app, error) {
	cfg, dotenvFound, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if !dotenvFound {
		log.Info("No .env file found, using environment variables", zap.String("env_file", envFile))
	}
	return newApp(cfg, log), nil
}

func newApp(cfg *config.Config, log *zap.Logger) *app {
	users := repository.NewJSONUserRepository(cfg.UsersPath())
	recipes := repository.NewJSONRecipeRepository(cfg.RecipesPath())
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExp())

	return &app{
		cfg:     cfg,
		logger:  log,
		users:   users,
		recipes: recipes,
		tokens:  tokens,
		auth:    service.NewAuthService(users, tokens, log),
		catalog: service.NewRecipeService(recipes, log),
	}
}

// ensureStorage creates missing data files. Failures are logged only; the
// next write retries.
func (a *app) ensureStorage() {
	if err := a.users.EnsureStorage(); err != nil {
		a.logger.Warn("Could not create users file", zap.String("path", a.cfg.UsersPath()), zap.Error(err))
	}
	if err := a.recipes.EnsureStorage(); err != nil {
		a.logger.Warn("Could not create recipes file", zap.String("path", a.cfg.RecipesPath()), zap.Error(err))
	}
}
