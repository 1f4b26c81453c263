package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nulltasker/nulltasker/internal/models"
)

// JSONStorage implements Storage using JSON documents on disk, one file
// per collection, each wrapped with a lastUpdated timestamp. Collections
// are cached in memory and flushed with a replace-on-write (temp file +
// rename). A single mutex serializes writers.
type JSONStorage struct {
	dir string

	mu       sync.RWMutex
	users    []*models.User
	tickets  []*models.Ticket
	projects []*models.Project
	settings *models.AppSettings

	userRepo     *jsonUserRepo
	projectRepo  *jsonProjectRepo
	ticketRepo   *jsonTicketRepo
	settingsRepo *jsonSettingsRepo
}

// Document wrappers matching the on-disk layout.

type usersDocument struct {
	Users       []*models.User `json:"users"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

type ticketsDocument struct {
	Tickets     []*models.Ticket `json:"tickets"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

type projectsDocument struct {
	Projects    []*models.Project `json:"projects"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

type settingsDocument struct {
	Settings    *models.AppSettings `json:"settings"`
	LastUpdated time.Time           `json:"lastUpdated"`
}

// NewJSONStorage creates a JSON-file storage rooted at dir.
func NewJSONStorage(dir string) *JSONStorage {
	return &JSONStorage{dir: dir}
}

// Open loads all collections into memory, creating the data directory
// if needed. Missing files start as empty collections.
func (s *JSONStorage) Open() error {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	var usersDoc usersDocument
	if err := s.loadFile("users.json", &usersDoc); err != nil {
		return err
	}
	s.users = usersDoc.Users

	var ticketsDoc ticketsDocument
	if err := s.loadFile("tickets.json", &ticketsDoc); err != nil {
		return err
	}
	s.tickets = ticketsDoc.Tickets

	var projectsDoc projectsDocument
	if err := s.loadFile("projects.json", &projectsDoc); err != nil {
		return err
	}
	s.projects = projectsDoc.Projects

	var settingsDoc settingsDocument
	if err := s.loadFile("settings.json", &settingsDoc); err != nil {
		return err
	}
	s.settings = settingsDoc.Settings

	s.userRepo = &jsonUserRepo{store: s}
	s.projectRepo = &jsonProjectRepo{store: s}
	s.ticketRepo = &jsonTicketRepo{store: s}
	s.settingsRepo = &jsonSettingsRepo{store: s}

	return nil
}

// Close flushes nothing; every mutation is written through immediately.
func (s *JSONStorage) Close() error {
	return nil
}

// Migrate seeds the default project and settings document.
func (s *JSONStorage) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		s.settings = models.DefaultAppSettings()
		if err := s.saveSettingsLocked(); err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
	}

	for _, p := range s.projects {
		if p.ID == models.DefaultProjectID {
			return nil
		}
	}

	now := time.Now()
	s.projects = append(s.projects, &models.Project{
		ID:          models.DefaultProjectID,
		Name:        "General",
		Description: "Default project for all users",
		Members:     []string{},
		Admins:      []string{},
		Settings:    models.DefaultProjectSettings(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err := s.saveProjectsLocked(); err != nil {
		return fmt.Errorf("seed default project: %w", err)
	}
	return nil
}

// EnsureAdminUser creates a bootstrap system admin if no users exist.
func (s *JSONStorage) EnsureAdminUser() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.users) > 0 {
		return nil
	}

	password := generateRandomPassword(16)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	admin := &models.User{
		ID:           uuid.New().String(),
		DisplayName:  "Administrator",
		Email:        "admin@localhost",
		PasswordHash: string(hash),
		Role:         models.RoleSystemAdmin,
		Projects:     []string{models.DefaultProjectID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users = append(s.users, admin)
	if err := s.saveUsersLocked(); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	for _, p := range s.projects {
		if p.ID == models.DefaultProjectID {
			p.AddMember(admin.ID)
			p.UpdatedAt = now
		}
	}
	if err := s.saveProjectsLocked(); err != nil {
		return fmt.Errorf("enroll admin in default project: %w", err)
	}

	fmt.Printf("\n")
	fmt.Printf("===========================================\n")
	fmt.Printf("  DEFAULT ADMIN USER CREATED\n")
	fmt.Printf("  Email:    admin@localhost\n")
	fmt.Printf("  Password: %s\n", password)
	fmt.Printf("  CHANGE THIS PASSWORD IMMEDIATELY!\n")
	fmt.Printf("===========================================\n")
	fmt.Printf("\n")

	return nil
}

// Users returns the user repository.
func (s *JSONStorage) Users() UserRepository {
	return s.userRepo
}

// Projects returns the project repository.
func (s *JSONStorage) Projects() ProjectRepository {
	return s.projectRepo
}

// Tickets returns the ticket repository.
func (s *JSONStorage) Tickets() TicketRepository {
	return s.ticketRepo
}

// Settings returns the settings repository.
func (s *JSONStorage) Settings() SettingsRepository {
	return s.settingsRepo
}

func (s *JSONStorage) loadFile(name string, out any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// writeFile replaces a collection file atomically.
func (s *JSONStorage) writeFile(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *JSONStorage) saveUsersLocked() error {
	return s.writeFile("users.json", usersDocument{Users: s.users, LastUpdated: time.Now()})
}

func (s *JSONStorage) saveTicketsLocked() error {
	return s.writeFile("tickets.json", ticketsDocument{Tickets: s.tickets, LastUpdated: time.Now()})
}

func (s *JSONStorage) saveProjectsLocked() error {
	return s.writeFile("projects.json", projectsDocument{Projects: s.projects, LastUpdated: time.Now()})
}

func (s *JSONStorage) saveSettingsLocked() error {
	return s.writeFile("settings.json", settingsDocument{Settings: s.settings, LastUpdated: time.Now()})
}
