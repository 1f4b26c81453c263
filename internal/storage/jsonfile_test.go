package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nulltasker/nulltasker/internal/models"
)

func setupTestJSON(t *testing.T) *JSONStorage {
	t.Helper()

	store := NewJSONStorage(t.TempDir())
	if err := store.Open(); err != nil {
		t.Fatalf("open json storage: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate json storage: %v", err)
	}
	return store
}

func TestJSONStorage_SeedsDefaults(t *testing.T) {
	store := setupTestJSON(t)
	ctx := context.Background()

	project, err := store.Projects().GetByID(ctx, models.DefaultProjectID)
	if err != nil {
		t.Fatalf("get default project: %v", err)
	}
	if project == nil {
		t.Fatal("default project should be seeded")
	}

	settings, err := store.Settings().Get(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if len(settings.Categories) == 0 {
		t.Error("default settings should have categories")
	}
}

func TestJSONStorage_UserCRUD(t *testing.T) {
	store := setupTestJSON(t)
	ctx := context.Background()

	user := testUser("json@example.com")
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := store.Users().Create(ctx, testUser("json@example.com")); err == nil {
		t.Error("duplicate email should be rejected")
	}

	got, err := store.Users().GetByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("get user by email: %v", err)
	}
	if got == nil {
		t.Fatal("user should exist")
	}

	// Mutating the returned record must not touch the cache
	got.DisplayName = "Mutated"
	got.Projects = append(got.Projects, "other")

	again, _ := store.Users().GetByID(ctx, user.ID)
	if again.DisplayName != "Test User" {
		t.Errorf("display name = %v, want Test User", again.DisplayName)
	}
	if len(again.Projects) != 1 {
		t.Errorf("projects = %v, want 1 entry", again.Projects)
	}

	user.DisplayName = "Renamed"
	user.UpdatedAt = time.Now()
	if err := store.Users().Update(ctx, user); err != nil {
		t.Fatalf("update user: %v", err)
	}

	if err := store.Users().Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if err := store.Users().Delete(ctx, user.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestJSONStorage_TicketUniqueness(t *testing.T) {
	store := setupTestJSON(t)
	ctx := context.Background()

	ticket := testTicket(models.DefaultProjectID, "Unique title", "alice")
	if err := store.Tickets().Create(ctx, ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	dup := testTicket(models.DefaultProjectID, "Unique title", "bob")
	if err := store.Tickets().Create(ctx, dup); err == nil {
		t.Error("duplicate title in project should be rejected")
	}

	elsewhere := testTicket("other-project", "Unique title", "bob")
	if err := store.Tickets().Create(ctx, elsewhere); err != nil {
		t.Errorf("same title in another project should be allowed: %v", err)
	}

	got, err := store.Tickets().GetByProjectTitle(ctx, models.DefaultProjectID, "Unique title")
	if err != nil {
		t.Fatalf("get by project title: %v", err)
	}
	if got == nil || got.ID != ticket.ID {
		t.Error("lookup by project and title should find the original")
	}
}

func TestJSONStorage_TicketParentCleared(t *testing.T) {
	store := setupTestJSON(t)
	ctx := context.Background()

	parent := testTicket(models.DefaultProjectID, "Parent", "alice")
	store.Tickets().Create(ctx, parent)

	child := testTicket(models.DefaultProjectID, "Child", "alice")
	child.ParentTask = &parent.ID
	store.Tickets().Create(ctx, child)

	if err := store.Tickets().Delete(ctx, parent.ID); err != nil {
		t.Fatalf("delete parent: %v", err)
	}

	got, _ := store.Tickets().GetByID(ctx, child.ID)
	if got == nil {
		t.Fatal("child should survive")
	}
	if got.ParentTask != nil {
		t.Errorf("parent task = %v, want nil", *got.ParentTask)
	}
}

func TestJSONStorage_ProjectCascadeDelete(t *testing.T) {
	store := setupTestJSON(t)
	ctx := context.Background()

	user := testUser("cascade-json@example.com")
	store.Users().Create(ctx, user)

	project := models.NewProject("Doomed", "", user.ID)
	project.ID = uuid.New().String()
	store.Projects().Create(ctx, project)
	store.Projects().AddMember(ctx, project.ID, user.ID)

	inside := testTicket(project.ID, "Inside", user.ID)
	store.Tickets().Create(ctx, inside)

	outside := testTicket(models.DefaultProjectID, "Outside", user.ID)
	outside.ParentTask = &inside.ID
	store.Tickets().Create(ctx, outside)

	if err := store.Projects().Delete(ctx, project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	tickets, _ := store.Tickets().ListByProject(ctx, project.ID)
	if len(tickets) != 0 {
		t.Errorf("project tickets = %d, want 0", len(tickets))
	}

	got, _ := store.Tickets().GetByID(ctx, outside.ID)
	if got == nil {
		t.Fatal("outside ticket should survive")
	}
	if got.ParentTask != nil {
		t.Errorf("parent task = %v, want nil", *got.ParentTask)
	}

	gotUser, _ := store.Users().GetByID(ctx, user.ID)
	if gotUser.IsMemberOf(project.ID) {
		t.Error("membership should be stripped")
	}

	if err := store.Projects().Delete(ctx, models.DefaultProjectID); !errors.Is(err, ErrDefaultProjectProtected) {
		t.Errorf("delete default project = %v, want ErrDefaultProjectProtected", err)
	}
}

func TestJSONStorage_Membership(t *testing.T) {
	store := setupTestJSON(t)
	ctx := context.Background()

	user := testUser("member-json@example.com")
	store.Users().Create(ctx, user)

	project := models.NewProject("Shared", "", uuid.New().String())
	project.ID = uuid.New().String()
	store.Projects().Create(ctx, project)

	if err := store.Projects().AddMember(ctx, project.ID, user.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}

	got, _ := store.Projects().GetByID(ctx, project.ID)
	if !got.HasMember(user.ID) {
		t.Error("project should list the member")
	}
	gotUser, _ := store.Users().GetByID(ctx, user.ID)
	if !gotUser.IsMemberOf(project.ID) {
		t.Error("user should be enrolled")
	}

	projects, _ := store.Projects().ListForUser(ctx, user.ID)
	if len(projects) != 1 {
		t.Errorf("projects for user = %d, want 1", len(projects))
	}

	if err := store.Projects().RemoveMember(ctx, project.ID, user.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	gotUser, _ = store.Users().GetByID(ctx, user.ID)
	if gotUser.IsMemberOf(project.ID) {
		t.Error("enrollment should be removed")
	}
}

func TestJSONStorage_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := NewJSONStorage(dir)
	if err := store.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	user := testUser("persist@example.com")
	store.Users().Create(ctx, user)
	ticket := testTicket(models.DefaultProjectID, "Persisted", user.ID)
	store.Tickets().Create(ctx, ticket)

	settings, _ := store.Settings().Get(ctx)
	settings.ProjectName = "Persisted Name"
	store.Settings().Update(ctx, settings)

	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := NewJSONStorage(dir)
	if err := reopened.Open(); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Users().GetByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("get user after reopen: %v", err)
	}
	if got == nil {
		t.Fatal("user should persist across reopen")
	}

	gotTicket, _ := reopened.Tickets().GetByID(ctx, ticket.ID)
	if gotTicket == nil {
		t.Fatal("ticket should persist across reopen")
	}
	if gotTicket.Title != "Persisted" {
		t.Errorf("title = %v, want Persisted", gotTicket.Title)
	}

	gotSettings, _ := reopened.Settings().Get(ctx)
	if gotSettings.ProjectName != "Persisted Name" {
		t.Errorf("project name = %v, want Persisted Name", gotSettings.ProjectName)
	}
}

func TestJSONStorage_EnsureAdminUser(t *testing.T) {
	store := setupTestJSON(t)
	ctx := context.Background()

	if err := store.EnsureAdminUser(); err != nil {
		t.Fatalf("ensure admin user: %v", err)
	}

	admin, _ := store.Users().GetByEmail(ctx, "admin@localhost")
	if admin == nil {
		t.Fatal("admin should exist")
	}
	if admin.Role != models.RoleSystemAdmin {
		t.Errorf("role = %v, want system_admin", admin.Role)
	}

	count1, _ := store.Users().Count(ctx)
	if err := store.EnsureAdminUser(); err != nil {
		t.Fatalf("second ensure admin user: %v", err)
	}
	count2, _ := store.Users().Count(ctx)
	if count1 != count2 {
		t.Errorf("user count changed from %d to %d", count1, count2)
	}
}
