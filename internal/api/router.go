package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"recipe_hub/internal/api/handler"
	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common/security"
	"recipe_hub/internal/platform/session"
)

type Dependencies struct {
	AuthService    *service.AuthService
	RecipeService  *service.RecipeService
	Views          session.Store
	Tokens         *security.TokenIssuer
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}).Handler)

	// Searches for a token in "Authorization: Bearer T" and puts the claims in context.
	r.Use(jwtauth.Verifier(deps.Tokens.JWTAuth()))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(deps.AuthService, deps.Views, deps.Logger)
		v1.Route("/auth", authHandler.RegisterRoutes)

		recipeHandler := handler.NewRecipeHandler(deps.RecipeService, deps.Views, deps.Logger)
		v1.Route("/recipes", recipeHandler.RegisterRoutes)

		viewHandler := handler.NewViewHandler(deps.RecipeService, deps.Views, deps.Logger)
		v1.Route("/view", viewHandler.RegisterRoutes)
	})

	return r
}
