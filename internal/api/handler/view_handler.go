package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"recipe_hub/internal/api/middleware"
	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common"
	"recipe_hub/internal/platform/session"
)

// ViewHandler drives the sidebar shortcuts: random pick, favorites only,
// vegan only and reset. Each toggle is stored per user and applied by
// GET /recipes until reset.
type ViewHandler struct {
	recipeService *service.RecipeService
	views         session.Store
	logger        *zap.Logger
}

func NewViewHandler(rs *service.RecipeService, views session.Store, logger *zap.Logger) *ViewHandler {
	return &ViewHandler{recipeService: rs, views: views, logger: logger}
}

func (h *ViewHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Get("/", h.current)
	r.Delete("/", h.reset)
	r.Post("/random", h.random)
	r.Post("/favorites", h.favorites)
	r.Post("/vegan", h.vegan)
}

func (h *ViewHandler) current(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	view, err := h.views.Get(r.Context(), username)
	if err != nil {
		h.respondStoreError(w, username, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *ViewHandler) random(w http.ResponseWriter, r *http.Request) {
	id, err := h.recipeService.Random(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	h.update(w, r, func(v *session.View) { v.SelectedID = id })
}

func (h *ViewHandler) favorites(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(v *session.View) { v.FavoritesOnly = true })
}

func (h *ViewHandler) vegan(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(v *session.View) { v.VeganOnly = true })
}

func (h *ViewHandler) reset(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	if err := h.views.Clear(r.Context(), username); err != nil {
		h.respondStoreError(w, username, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, session.View{})
}

func (h *ViewHandler) update(w http.ResponseWriter, r *http.Request, fn func(*session.View)) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	view, err := h.views.Get(r.Context(), username)
	if err != nil {
		h.respondStoreError(w, username, err)
		return
	}
	fn(&view)
	if err := h.views.Save(r.Context(), username, view); err != nil {
		h.respondStoreError(w, username, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *ViewHandler) respondStoreError(w http.ResponseWriter, username string, err error) {
	h.logger.Error("View handler: session store failure", zap.String("username", username), zap.Error(err))
	common.RespondWithError(w, http.StatusServiceUnavailable, "view state is temporarily unavailable")
}
