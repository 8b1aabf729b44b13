package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"recipe_hub/internal/api/handler"
	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common/security"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/domain/repository"
	"recipe_hub/internal/platform/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	dir     string
	token   string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dir := t.TempDir()
	log := zap.NewNop()
	tokens := security.NewTokenIssuer("test-secret", time.Hour)
	users := repository.NewJSONUserRepository(filepath.Join(dir, "users.json"))
	recipes := repository.NewJSONRecipeRepository(filepath.Join(dir, "recipes.json"))

	h := NewRouter(Dependencies{
		AuthService:    service.NewAuthService(users, tokens, log),
		RecipeService:  service.NewRecipeService(recipes, log),
		Views:          session.NewMemoryStore(),
		Tokens:         tokens,
		AllowedOrigins: []string{"http://localhost:5173"},
		Logger:         log,
	})
	return &testAPI{t: t, handler: h, dir: dir}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) signup(username, password string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/auth/register", service.SignupRequest{
		Username: username, Password: password, ConfirmPassword: password,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	a.token = decode[service.AuthResponse](a.t, rec).Token
}

func (a *testAPI) create(title, category, cookTime string) model.Recipe {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/recipes", service.CreateRecipeRequest{
		Title: title, Description: "d", Ingredients: "a\nb", Steps: "one\ntwo",
		Time: cookTime, Category: category,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Recipe](a.t, rec)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	api.signup("alice", "s3cret")

	rec := api.do(http.MethodPost, "/api/v1/auth/login", service.LoginRequest{Username: "alice", Password: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[service.AuthResponse](t, rec)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "alice", login.User.Username)
	assert.NotContains(t, rec.Body.String(), "password")
	api.token = login.Token

	rec = api.do(http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"alice"}`, rec.Body.String())

	created := api.create("Käsespätzle", "vegetarian", "40 min")
	assert.Equal(t, "alice", created.CreatedBy)

	rec = api.do(http.MethodGet, "/api/v1/recipes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[handler.ListResponse](t, rec)
	assert.Equal(t, 1, list.Count)
	assert.Empty(t, list.Notice)

	rec = api.do(http.MethodPost, "/api/v1/recipes/"+created.ID+"/favorite", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fav := decode[handler.FavoriteResponse](t, rec)
	assert.True(t, fav.Found)
	assert.True(t, fav.Recipe.Favorite)

	rec = api.do(http.MethodGet, "/api/v1/recipes/"+created.ID+"/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "kasespatzle.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = api.do(http.MethodDelete, "/api/v1/recipes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[handler.DeleteResponse](t, rec).Removed)

	rec = api.do(http.MethodGet, "/api/v1/recipes/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecipesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/v1/recipes", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	api.token = "not-a-jwt"
	rec = api.do(http.MethodGet, "/api/v1/recipes", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterErrors(t *testing.T) {
	api := newTestAPI(t)
	api.signup("bob", "pw")
	api.token = ""

	rec := api.do(http.MethodPost, "/api/v1/auth/register", service.SignupRequest{
		Username: "bob", Password: "x", ConfirmPassword: "x",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "username already exists")

	rec = api.do(http.MethodPost, "/api/v1/auth/register", service.SignupRequest{
		Username: "carol", Password: "x", ConfirmPassword: "y",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "passwords do not match")

	rec = api.do(http.MethodPost, "/api/v1/auth/login", service.LoginRequest{Username: "bob", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid username or password")
}

func TestListFilters(t *testing.T) {
	api := newTestAPI(t)
	api.signup("alice", "pw")
	api.create("Green curry", "vegan", "25 min")
	api.create("Goulash", "with-meat", "2 hours 15 min")
	api.create("Omelette", "vegetarian", "10 min")

	cases := []struct {
		query string
		want  []string
	}{
		{"", []string{"Omelette", "Goulash", "Green curry"}},
		{"?vegan=true", []string{"Green curry"}},
		{"?category=vegan&category=with-meat", []string{"Goulash", "Green curry"}},
		{"?max_time=20", []string{"Omelette", "Goulash"}},
		{"?q=CURRY", []string{"Green curry"}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec := api.do(http.MethodGet, "/api/v1/recipes"+tc.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			list := decode[handler.ListResponse](t, rec)
			var titles []string
			for _, r := range list.Recipes {
				titles = append(titles, r.Title)
			}
			assert.Equal(t, tc.want, titles)
			assert.Equal(t, len(tc.want), list.Count)
		})
	}

	rec := api.do(http.MethodGet, "/api/v1/recipes?max_time=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/recipes?category=pescatarian", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViewState(t *testing.T) {
	api := newTestAPI(t)
	api.signup("alice", "pw")

	rec := api.do(http.MethodPost, "/api/v1/view/random", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	vegan := api.create("Dal", "vegan", "30 min")
	api.create("Roast", "with-meat", "90 min")

	rec = api.do(http.MethodPost, "/api/v1/view/vegan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[session.View](t, rec).VeganOnly)

	list := decode[handler.ListResponse](t, api.do(http.MethodGet, "/api/v1/recipes", nil))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, vegan.ID, list.Recipes[0].ID)

	rec = api.do(http.MethodPost, "/api/v1/view/favorites", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[handler.ListResponse](t, api.do(http.MethodGet, "/api/v1/recipes", nil))
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Recipes)

	rec = api.do(http.MethodDelete, "/api/v1/view", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[handler.ListResponse](t, api.do(http.MethodGet, "/api/v1/recipes", nil))
	assert.Equal(t, 2, list.Count)

	rec = api.do(http.MethodPost, "/api/v1/view/random", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	picked := decode[session.View](t, rec).SelectedID
	require.NotEmpty(t, picked)

	list = decode[handler.ListResponse](t, api.do(http.MethodGet, "/api/v1/recipes", nil))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, picked, list.Recipes[0].ID)

	rec = api.do(http.MethodDelete, "/api/v1/recipes/"+picked, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[session.View](t, api.do(http.MethodGet, "/api/v1/view", nil))
	assert.Empty(t, view.SelectedID)

	rec = api.do(http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestToggleAndDeleteUnknownID(t *testing.T) {
	api := newTestAPI(t)
	api.signup("alice", "pw")

	rec := api.do(http.MethodPost, "/api/v1/recipes/missing/favorite", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[handler.FavoriteResponse](t, rec).Found)

	rec = api.do(http.MethodDelete, "/api/v1/recipes/missing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[handler.DeleteResponse](t, rec).Removed)
}

func TestCorruptRecipesFile(t *testing.T) {
	api := newTestAPI(t)
	api.signup("alice", "pw")
	path := filepath.Join(api.dir, "recipes.json")
	require.NoError(t, os.WriteFile(path, []byte("[{oops"), 0o644))

	rec := api.do(http.MethodGet, "/api/v1/recipes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[handler.ListResponse](t, rec)
	assert.Equal(t, 0, list.Count)
	assert.NotEmpty(t, list.Notice)

	rec = api.do(http.MethodPost, "/api/v1/recipes", service.CreateRecipeRequest{
		Title: "t", Description: "d", Ingredients: "i", Steps: "s", Time: "5 min",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "oops")

	rec = api.do(http.MethodGet, "/api/v1/recipes/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[handler.StatsResponse](t, rec)
	assert.Equal(t, 0, st.Total)
	assert.Equal(t, list.Notice, st.Notice)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[{oops", string(data))
}

func TestLoginCorruptUsersFile(t *testing.T) {
	api := newTestAPI(t)
	api.signup("alice", "pw")
	api.token = ""
	path := filepath.Join(api.dir, "users.json")
	require.NoError(t, os.WriteFile(path, []byte("[{oops"), 0o644))

	rec := api.do(http.MethodPost, "/api/v1/auth/login", service.LoginRequest{Username: "alice", Password: "pw"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not access the data file")
	assert.NotContains(t, rec.Body.String(), "invalid username or password")

	rec = api.do(http.MethodPost, "/api/v1/auth/register", service.SignupRequest{
		Username: "bob", Password: "pw", ConfirmPassword: "pw",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not access the data file")
}

func TestOptionsAndStats(t *testing.T) {
	api := newTestAPI(t)
	api.signup("alice", "pw")
	api.create("Dal", "vegan", "30 min")

	opts := decode[handler.OptionsResponse](t, api.do(http.MethodGet, "/api/v1/recipes/options", nil))
	assert.Equal(t, model.Categories, opts.Categories)
	assert.Equal(t, []int{15, 30, 45, 60}, opts.TimePresets)
	assert.Contains(t, opts.Images, model.DefaultImage)

	st := decode[handler.StatsResponse](t, api.do(http.MethodGet, "/api/v1/recipes/stats", nil))
	assert.Equal(t, 1, st.Total)
	assert.Empty(t, st.Notice)
	assert.Equal(t, 1, st.ByCategory[model.CategoryVegan])
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/recipes", strings.NewReader(""))
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
