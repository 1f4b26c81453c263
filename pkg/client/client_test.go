package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["email"] != "alice@example.com" {
			t.Errorf("email = %v", req["email"])
		}
		writeData(w, http.StatusOK, map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"user":          map[string]string{"id": "u1", "email": "alice@example.com"},
		})
	}))
	defer srv.Close()

	store := NewMemoryTokenStore()
	c := New(srv.URL, store)

	user, err := c.Login(context.Background(), "alice@example.com", "Password1", false)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("user = %+v", user)
	}

	tokens, _ := store.Load()
	if tokens == nil || tokens.AccessToken != "access-1" || tokens.RefreshToken != "refresh-1" {
		t.Errorf("stored tokens = %+v", tokens)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
	}))
	defer srv.Close()

	c := New(srv.URL, NewMemoryTokenStore())

	_, err := c.Login(context.Background(), "alice@example.com", "wrong", false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Code != "UNAUTHORIZED" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestBearerHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
			t.Errorf("Authorization = %q", got)
		}
		writeData(w, http.StatusOK, map[string]string{"id": "u1"})
	}))
	defer srv.Close()

	store := NewMemoryTokenStore()
	store.Save(&Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"})
	c := New(srv.URL, store)

	if _, err := c.CurrentUser(context.Background()); err != nil {
		t.Fatalf("current user: %v", err)
	}
}

func TestSilentRefresh(t *testing.T) {
	var refreshed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			refreshed = true
			writeData(w, http.StatusOK, map[string]string{"access_token": "access-2"})
		case "/api/users/me":
			if r.Header.Get("Authorization") == "Bearer access-2" {
				writeData(w, http.StatusOK, map[string]string{"id": "u1"})
				return
			}
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	store := NewMemoryTokenStore()
	store.Save(&Tokens{AccessToken: "stale", RefreshToken: "refresh-1"})
	c := New(srv.URL, store)

	user, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user = %+v", user)
	}
	if !refreshed {
		t.Error("client did not refresh")
	}

	tokens, _ := store.Load()
	if tokens.AccessToken != "access-2" {
		t.Errorf("access token = %q, want refreshed", tokens.AccessToken)
	}
	if tokens.RefreshToken != "refresh-1" {
		t.Errorf("refresh token = %q, want kept", tokens.RefreshToken)
	}
}

func TestSessionExpired_RefreshRejected(t *testing.T) {
	var refreshCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			refreshCalls++
			writeError(w, http.StatusForbidden, "FORBIDDEN", "invalid or expired refresh token")
		default:
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
		}
	}))
	defer srv.Close()

	store := NewMemoryTokenStore()
	store.Save(&Tokens{AccessToken: "stale", RefreshToken: "dead"})
	c := New(srv.URL, store)

	_, err := c.CurrentUser(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if refreshCalls != 1 {
		t.Errorf("refresh called %d times, want exactly 1", refreshCalls)
	}

	tokens, _ := store.Load()
	if tokens != nil {
		t.Error("tokens not cleared after failed refresh")
	}
}

func TestSessionExpired_NoTokens(t *testing.T) {
	c := New("http://unused.invalid", NewMemoryTokenStore())

	_, err := c.CurrentUser(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestSessionExpired_NoRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
	}))
	defer srv.Close()

	store := NewMemoryTokenStore()
	store.Save(&Tokens{AccessToken: "stale"})
	c := New(srv.URL, store)

	_, err := c.CurrentUser(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if tokens, _ := store.Load(); tokens != nil {
		t.Error("tokens not cleared")
	}
}

func TestTicketRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/tasks":
			var req TicketRequest
			json.NewDecoder(r.Body).Decode(&req)
			writeData(w, http.StatusCreated, Ticket{ID: "t1", Project: req.Project, Title: *req.Title})
		case r.Method == http.MethodGet && r.URL.Path == "/api/tasks":
			if got := r.URL.Query().Get("project"); got != "default" {
				t.Errorf("project filter = %q", got)
			}
			writeData(w, http.StatusOK, []Ticket{{ID: "t1"}})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/tasks/t1":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	store := NewMemoryTokenStore()
	store.Save(&Tokens{AccessToken: "access-1"})
	c := New(srv.URL, store)
	ctx := context.Background()

	title := "Fix bug"
	ticket, err := c.CreateTicket(ctx, &TicketRequest{Project: "default", Title: &title})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if ticket.ID != "t1" || ticket.Title != "Fix bug" {
		t.Errorf("ticket = %+v", ticket)
	}

	list, err := c.ListTickets(ctx, "default")
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d tickets", len(list))
	}

	if err := c.DeleteTicket(ctx, "t1"); err != nil {
		t.Fatalf("delete ticket: %v", err)
	}
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	store := NewFileTokenStore(path)

	// Empty store loads nil
	tokens, err := store.Load()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if tokens != nil {
		t.Errorf("tokens = %+v, want nil", tokens)
	}

	if err := store.Save(&Tokens{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// File is owner-only
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	tokens, err = store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tokens.AccessToken != "a" || tokens.RefreshToken != "r" {
		t.Errorf("tokens = %+v", tokens)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if tokens, _ := store.Load(); tokens != nil {
		t.Error("tokens survive clear")
	}

	// Clearing twice is fine
	if err := store.Clear(); err != nil {
		t.Errorf("second clear: %v", err)
	}
}
