package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/nulltasker/nulltasker/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	path string
	db   *sql.DB

	users    *sqliteUserRepo
	projects *sqliteProjectRepo
	tickets  *sqliteTicketRepo
	settings *sqliteSettingsRepo
}

// NewSQLiteStorage creates a new SQLite storage.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open initializes the database connection.
func (s *SQLiteStorage) Open() error {
	ctx := context.Background()

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s.db = db

	s.users = &sqliteUserRepo{db: db}
	s.projects = &sqliteProjectRepo{db: db}
	s.tickets = &sqliteTicketRepo{db: db}
	s.settings = &sqliteSettingsRepo{db: db}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Migrate runs database migrations and seeds the default project and
// application settings.
func (s *SQLiteStorage) Migrate() error {
	if err := runMigrations(s.db); err != nil {
		return err
	}
	if err := s.seedDefaultProject(); err != nil {
		return fmt.Errorf("seed default project: %w", err)
	}
	if err := s.seedSettings(); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) seedDefaultProject() error {
	ctx := context.Background()

	existing, err := s.Projects().GetByID(ctx, models.DefaultProjectID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	now := time.Now()
	project := &models.Project{
		ID:          models.DefaultProjectID,
		Name:        "General",
		Description: "Default project for all users",
		Members:     []string{},
		Admins:      []string{},
		Settings:    models.DefaultProjectSettings(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.Projects().Create(ctx, project)
}

func (s *SQLiteStorage) seedSettings() error {
	ctx := context.Background()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM app_settings").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.Settings().Update(ctx, models.DefaultAppSettings())
}

// EnsureAdminUser creates a bootstrap system admin if no users exist.
func (s *SQLiteStorage) EnsureAdminUser() error {
	ctx := context.Background()

	count, err := s.Users().Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
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

	if err := s.Users().Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	if err := s.Projects().AddMember(ctx, models.DefaultProjectID, admin.ID); err != nil {
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
func (s *SQLiteStorage) Users() UserRepository {
	return s.users
}

// Projects returns the project repository.
func (s *SQLiteStorage) Projects() ProjectRepository {
	return s.projects
}

// Tickets returns the ticket repository.
func (s *SQLiteStorage) Tickets() TicketRepository {
	return s.tickets
}

// Settings returns the settings repository.
func (s *SQLiteStorage) Settings() SettingsRepository {
	return s.settings
}

// generateRandomPassword generates a random password of the specified length.
func generateRandomPassword(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)[:length]
}

// encodeJSON marshals a value for storage in a JSON text column.
// A nil slice is stored as an empty array rather than "null".
func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

func decodeStringSlice(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode json column: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
