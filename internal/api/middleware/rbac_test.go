package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/nulltasker/nulltasker/internal/models"
)

func setAuthContext(r *http.Request, userID string, role models.Role) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, roleKey, role)
	return r.WithContext(ctx)
}

func TestRequireRole_Allowed(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		role     models.Role
		allowed  []models.Role
		wantCode int
	}{
		{"exact match", models.RoleSystemAdmin, []models.Role{models.RoleSystemAdmin}, http.StatusOK},
		{"one of many", models.RoleProjectAdmin, []models.Role{models.RoleSystemAdmin, models.RoleProjectAdmin}, http.StatusOK},
		{"system admin bypass", models.RoleSystemAdmin, []models.Role{models.RoleUser}, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := RequireRole(tc.allowed...)(handler)

			req := httptest.NewRequest("GET", "/test", nil)
			req = setAuthContext(req, "user-123", tc.role)
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}
}

func TestRequireRole_Denied(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	tests := []struct {
		name    string
		role    models.Role
		allowed []models.Role
	}{
		{"user not system admin", models.RoleUser, []models.Role{models.RoleSystemAdmin}},
		{"project admin not system admin", models.RoleProjectAdmin, []models.Role{models.RoleSystemAdmin}},
		{"user not project admin", models.RoleUser, []models.Role{models.RoleProjectAdmin}},
		{"empty role", "", []models.Role{models.RoleUser}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := RequireRole(tc.allowed...)(handler)

			req := httptest.NewRequest("GET", "/test", nil)
			if tc.role != "" {
				req = setAuthContext(req, "user-123", tc.role)
			}
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			if rec.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
			}
		})
	}
}

func TestRequireSystemAdmin(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		role     models.Role
		wantCode int
	}{
		{models.RoleSystemAdmin, http.StatusOK},
		{models.RoleProjectAdmin, http.StatusForbidden},
		{models.RoleUser, http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			wrapped := RequireSystemAdmin(handler)

			req := httptest.NewRequest("GET", "/test", nil)
			req = setAuthContext(req, "user-123", tc.role)
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}
}

func TestRequireAdminOrSelf(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		userID     string
		role       models.Role
		resourceID string
		wantCode   int
	}{
		{"system admin accessing other", "admin-1", models.RoleSystemAdmin, "user-2", http.StatusOK},
		{"user accessing self", "user-1", models.RoleUser, "user-1", http.StatusOK},
		{"project admin accessing self", "user-1", models.RoleProjectAdmin, "user-1", http.StatusOK},
		{"user accessing other", "user-1", models.RoleUser, "user-2", http.StatusForbidden},
		{"project admin accessing other", "user-1", models.RoleProjectAdmin, "user-2", http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := RequireAdminOrSelf(handler)

			// Use chi router to set URL param
			router := chi.NewRouter()
			router.With(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					r = setAuthContext(r, tc.userID, tc.role)
					next.ServeHTTP(w, r)
				})
			}).Get("/users/{id}", wrapped.ServeHTTP)

			req := httptest.NewRequest("GET", "/users/"+tc.resourceID, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}
}
