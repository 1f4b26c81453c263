// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"

	"github.com/nulltasker/nulltasker/internal/models"
)

// ErrDefaultProjectProtected is returned when a caller attempts to
// delete the default project.
var ErrDefaultProjectProtected = errors.New("default project cannot be deleted")

// ErrNotFound is returned by mutations targeting a missing record.
var ErrNotFound = errors.New("record not found")

// Storage is the main interface for persistence operations. Two
// implementations exist: SQLite-backed (primary) and JSON-file-backed.
type Storage interface {
	// Open initializes the storage backend.
	Open() error
	// Close releases the storage backend.
	Close() error
	// Migrate prepares schema/files and seeds the default project and
	// application settings.
	Migrate() error
	// EnsureAdminUser creates a bootstrap system admin if no users exist.
	EnsureAdminUser() error

	// Repository accessors
	Users() UserRepository
	Projects() ProjectRepository
	Tickets() TicketRepository
	Settings() SettingsRepository
}

// UserRepository defines operations for user records.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// ProjectRepository defines operations for project records.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	GetByName(ctx context.Context, name string) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	// Delete removes a project, its tickets, and every user's membership
	// reference to it. Deleting the default project fails with
	// ErrDefaultProjectProtected.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Project, error)
	// ListForUser returns projects whose member list contains the user.
	ListForUser(ctx context.Context, userID string) ([]*models.Project, error)
	AddMember(ctx context.Context, projectID, userID string) error
	RemoveMember(ctx context.Context, projectID, userID string) error
}

// TicketRepository defines operations for ticket records.
type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
	// GetByProjectTitle looks up a ticket by its (project, title) pair,
	// which is unique within a project.
	GetByProjectTitle(ctx context.Context, projectID, title string) (*models.Ticket, error)
	Update(ctx context.Context, ticket *models.Ticket) error
	// Delete removes a ticket and nulls parent_task on its children
	// (children are never cascade-deleted).
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Ticket, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Ticket, error)
	ListByProjects(ctx context.Context, projectIDs []string) ([]*models.Ticket, error)
	Count(ctx context.Context) (int64, error)
}

// SettingsRepository stores the single application settings document.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.AppSettings, error)
	Update(ctx context.Context, settings *models.AppSettings) error
}
