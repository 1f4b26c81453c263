package settingsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nulltasker/nulltasker/internal/api/auth"
	"github.com/nulltasker/nulltasker/internal/api/middleware"
	"github.com/nulltasker/nulltasker/internal/models"
	"github.com/nulltasker/nulltasker/internal/storage"
)

type testEnv struct {
	storage storage.Storage
	tokens  *auth.TokenService
	router  chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewJSONStorage(t.TempDir())
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate storage: %v", err)
	}

	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour, 7*24*time.Hour, 30*24*time.Hour)
	handler := NewHandler(store)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(tokens))
		r.Get("/api/settings", handler.Get)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSystemAdmin)
			r.Put("/api/settings", handler.Update)
		})
	})

	return &testEnv{storage: store, tokens: tokens, router: r}
}

func (e *testEnv) addUser(t *testing.T, email string, role models.Role) string {
	t.Helper()

	user := models.NewUser("Test User", email, role)
	user.ID = uuid.New().String()
	user.PasswordHash = "x"
	if err := e.storage.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	token, err := e.tokens.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestGet(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "alice@example.com", models.RoleUser)

	rec := env.do(t, http.MethodGet, "/api/settings", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Data *models.AppSettings `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.ProjectName == "" {
		t.Error("settings missing project name")
	}
	if len(resp.Data.Categories) == 0 {
		t.Error("settings missing categories")
	}
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.addUser(t, "admin@example.com", models.RoleSystemAdmin)

	settings := models.DefaultAppSettings()
	settings.ProjectName = "Renamed"
	settings.Display.Theme = "dark"

	rec := env.do(t, http.MethodPut, "/api/settings", adminToken, settings)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	stored, err := env.storage.Settings().Get(context.Background())
	if err != nil || stored == nil {
		t.Fatalf("get settings: %v", err)
	}
	if stored.ProjectName != "Renamed" || stored.Display.Theme != "dark" {
		t.Errorf("stored settings = %q / %q", stored.ProjectName, stored.Display.Theme)
	}
}

func TestUpdate_NonAdminForbidden(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "alice@example.com", models.RoleUser)

	rec := env.do(t, http.MethodPut, "/api/settings", token, models.DefaultAppSettings())
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestUpdate_Validation(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.addUser(t, "admin@example.com", models.RoleSystemAdmin)

	tests := []struct {
		name   string
		mutate func(*models.AppSettings)
	}{
		{"missing project name", func(s *models.AppSettings) { s.ProjectName = "" }},
		{"no categories", func(s *models.AppSettings) { s.Categories = nil }},
		{"bad theme", func(s *models.AppSettings) { s.Display.Theme = "neon" }},
		{"negative page size", func(s *models.AppSettings) { s.Display.TasksPerPage = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := models.DefaultAppSettings()
			tt.mutate(settings)
			rec := env.do(t, http.MethodPut, "/api/settings", adminToken, settings)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}
