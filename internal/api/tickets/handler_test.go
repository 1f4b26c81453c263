package tickets

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
		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", handler.List)
			r.Post("/", handler.Create)
			r.Get("/{id}", handler.GetByID)
			r.Put("/{id}", handler.Update)
			r.Delete("/{id}", handler.Delete)
		})
	})

	return &testEnv{storage: store, tokens: tokens, router: r}
}

func (e *testEnv) addUser(t *testing.T, email string, role models.Role) (*models.User, string) {
	t.Helper()

	user := models.NewUser("Test User", email, role)
	user.ID = uuid.New().String()
	user.PasswordHash = "x"
	user.AddProject(models.DefaultProjectID)

	ctx := context.Background()
	if err := e.storage.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := e.storage.Projects().AddMember(ctx, models.DefaultProjectID, user.ID); err != nil {
		t.Fatalf("enroll default project: %v", err)
	}

	token, err := e.tokens.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return user, token
}

func (e *testEnv) addProject(t *testing.T, name string) *models.Project {
	t.Helper()

	project := models.NewProject(name, "", "")
	project.ID = uuid.New().String()
	if err := e.storage.Projects().Create(context.Background(), project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func (e *testEnv) addTicket(t *testing.T, projectID, title string) *models.Ticket {
	t.Helper()

	ticket := models.NewTicket(projectID, title)
	ticket.ID = uuid.New().String()
	if err := e.storage.Tickets().Create(context.Background(), ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
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

func decodeTicket(t *testing.T, rec *httptest.ResponseRecorder) *models.Ticket {
	t.Helper()
	var resp struct {
		Data *models.Ticket `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Data
}

func decodeTickets(t *testing.T, rec *httptest.ResponseRecorder) []*models.Ticket {
	t.Helper()
	var resp struct {
		Data []*models.Ticket `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Data
}

func TestCreateTicket(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)

	due := "2026-10-01"
	progress := 25
	rec := env.do(t, http.MethodPost, "/api/tasks", token, CreateRequest{
		Project:  models.DefaultProjectID,
		Title:    "Fix bug",
		Priority: "high",
		Status:   "in_progress",
		Progress: &progress,
		DueDate:  &due,
		Tags:     []string{"backend"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	created := decodeTicket(t, rec)
	if created.ID == "" {
		t.Error("ticket id not assigned")
	}
	if created.Priority != models.PriorityHigh || created.Status != models.StatusInProgress {
		t.Errorf("priority/status = %q/%q", created.Priority, created.Status)
	}
	if created.Progress != 25 {
		t.Errorf("progress = %d, want 25", created.Progress)
	}
	if created.DueDate == nil || *created.DueDate != due {
		t.Errorf("due date = %v", created.DueDate)
	}
}

func TestCreateTicket_Defaults(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)

	rec := env.do(t, http.MethodPost, "/api/tasks", token, CreateRequest{
		Project: models.DefaultProjectID,
		Title:   "Minimal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	created := decodeTicket(t, rec)
	if created.Priority != models.PriorityMedium {
		t.Errorf("priority = %q, want medium default", created.Priority)
	}
	if created.Status != models.StatusTodo {
		t.Errorf("status = %q, want todo default", created.Status)
	}
}

func TestCreateTicket_DuplicateTitle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)
	env.addTicket(t, models.DefaultProjectID, "Fix bug")

	rec := env.do(t, http.MethodPost, "/api/tasks", token, CreateRequest{
		Project: models.DefaultProjectID,
		Title:   "Fix bug",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCreateTicket_Validation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)

	badProgress := 150
	badDate := "01/10/2026"
	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"missing title", CreateRequest{Project: models.DefaultProjectID}},
		{"missing project", CreateRequest{Title: "X"}},
		{"bad priority", CreateRequest{Project: models.DefaultProjectID, Title: "X", Priority: "urgent"}},
		{"bad status", CreateRequest{Project: models.DefaultProjectID, Title: "X", Status: "archived"}},
		{"bad progress", CreateRequest{Project: models.DefaultProjectID, Title: "X", Progress: &badProgress}},
		{"bad due date", CreateRequest{Project: models.DefaultProjectID, Title: "X", DueDate: &badDate}},
		{"negative estimated hours", CreateRequest{Project: models.DefaultProjectID, Title: "X", EstimatedHours: -5}},
		{"negative actual hours", CreateRequest{Project: models.DefaultProjectID, Title: "X", ActualHours: -2.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/tasks", token, tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCreateTicket_NonMemberForbidden(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)
	other := env.addProject(t, "Other")

	rec := env.do(t, http.MethodPost, "/api/tasks", token, CreateRequest{
		Project: other.ID,
		Title:   "Sneaky",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCreateTicket_AdminBypassesMembership(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.addUser(t, "admin@example.com", models.RoleSystemAdmin)
	other := env.addProject(t, "Other")

	rec := env.do(t, http.MethodPost, "/api/tasks", adminToken, CreateRequest{
		Project: other.ID,
		Title:   "Admin task",
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

func TestListTickets_MembershipFiltered(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)
	other := env.addProject(t, "Other")
	env.addTicket(t, models.DefaultProjectID, "Visible")
	env.addTicket(t, other.ID, "Hidden")

	rec := env.do(t, http.MethodGet, "/api/tasks", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	list := decodeTickets(t, rec)
	if len(list) != 1 {
		t.Fatalf("got %d tickets, want 1", len(list))
	}
	if list[0].Title != "Visible" {
		t.Errorf("got %q", list[0].Title)
	}
}

func TestListTickets_ProjectFilter(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)
	other := env.addProject(t, "Other")
	env.addTicket(t, models.DefaultProjectID, "Mine")

	rec := env.do(t, http.MethodGet, "/api/tasks?project="+models.DefaultProjectID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if list := decodeTickets(t, rec); len(list) != 1 {
		t.Errorf("got %d tickets, want 1", len(list))
	}

	// Filtering by a project the caller is not a member of is forbidden
	rec = env.do(t, http.MethodGet, "/api/tasks?project="+other.ID, token, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestGetTicket(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)
	ticket := env.addTicket(t, models.DefaultProjectID, "Fix bug")

	rec := env.do(t, http.MethodGet, "/api/tasks/"+ticket.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeTicket(t, rec)
	if got.ID != ticket.ID {
		t.Errorf("ticket id = %q", got.ID)
	}
}

func TestGetTicket_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)

	rec := env.do(t, http.MethodGet, "/api/tasks/"+uuid.New().String(), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateTicket_Coalesce(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)
	ticket := env.addTicket(t, models.DefaultProjectID, "Fix bug")

	status := "done"
	progress := 100
	rec := env.do(t, http.MethodPut, "/api/tasks/"+ticket.ID, token, UpdateRequest{
		Status:   &status,
		Progress: &progress,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	got := decodeTicket(t, rec)
	if got.Status != models.StatusDone || got.Progress != 100 {
		t.Errorf("status/progress = %q/%d", got.Status, got.Progress)
	}
	// Untouched fields survive
	if got.Title != "Fix bug" {
		t.Errorf("title = %q, want unchanged", got.Title)
	}
	if got.Priority != models.PriorityMedium {
		t.Errorf("priority = %q, want unchanged", got.Priority)
	}
}

func TestUpdateTicket_NegativeHours(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)
	ticket := env.addTicket(t, models.DefaultProjectID, "Fix bug")

	bad := -1.5
	for _, req := range []UpdateRequest{
		{EstimatedHours: &bad},
		{ActualHours: &bad},
	} {
		rec := env.do(t, http.MethodPut, "/api/tasks/"+ticket.ID, token, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	}
}

func TestUpdateTicket_TitleConflict(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)
	env.addTicket(t, models.DefaultProjectID, "Taken")
	ticket := env.addTicket(t, models.DefaultProjectID, "Fix bug")

	title := "Taken"
	rec := env.do(t, http.MethodPut, "/api/tasks/"+ticket.ID, token, UpdateRequest{Title: &title})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestUpdateTicket_ClearParent(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)
	parent := env.addTicket(t, models.DefaultProjectID, "Parent")

	child := models.NewTicket(models.DefaultProjectID, "Child")
	child.ID = uuid.New().String()
	child.ParentTask = &parent.ID
	if err := env.storage.Tickets().Create(context.Background(), child); err != nil {
		t.Fatalf("create child: %v", err)
	}

	empty := ""
	rec := env.do(t, http.MethodPut, "/api/tasks/"+child.ID, token, UpdateRequest{ParentTask: &empty})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := decodeTicket(t, rec); got.ParentTask != nil {
		t.Errorf("parent task = %v, want nil", got.ParentTask)
	}
}

func TestDeleteTicket(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)
	ticket := env.addTicket(t, models.DefaultProjectID, "Fix bug")

	rec := env.do(t, http.MethodDelete, "/api/tasks/"+ticket.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	gone, err := env.storage.Tickets().GetByID(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("get deleted ticket: %v", err)
	}
	if gone != nil {
		t.Error("ticket still exists after delete")
	}
}

func TestDeleteTicket_NonMemberForbidden(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "alice@example.com", models.RoleUser)
	other := env.addProject(t, "Other")
	ticket := env.addTicket(t, other.ID, "Protected")

	rec := env.do(t, http.MethodDelete, "/api/tasks/"+ticket.ID, token, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
