package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"recipe_hub/internal/api/middleware"
	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common"
	"recipe_hub/internal/platform/session"
)

type AuthHandler struct {
	authService *service.AuthService
	views       session.Store
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, views session.Store, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, views: views, logger: logger}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/logout", h.logout)
		authed.Get("/me", h.me)
	})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	resp, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

// logout drops the caller's view state. Tokens are stateless and simply
// expire; clients discard theirs.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	if err := h.views.Clear(r.Context(), username); err != nil {
		h.logger.Warn("Auth handler: failed to clear view state", zap.String("username", username), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"username": username})
}
