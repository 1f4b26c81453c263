package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nulltasker/nulltasker/internal/models"
)

type sqliteProjectRepo struct {
	db *sql.DB
}

const projectColumns = "id, name, description, owner, members, admins, settings, created_at, updated_at"

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	project := &models.Project{}
	var description sql.NullString
	var members, admins, settings string
	err := row.Scan(
		&project.ID, &project.Name, &description, &project.Owner,
		&members, &admins, &settings,
		&project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	project.Description = description.String
	if project.Members, err = decodeStringSlice(members); err != nil {
		return nil, err
	}
	if project.Admins, err = decodeStringSlice(admins); err != nil {
		return nil, err
	}
	if settings != "" && settings != "{}" {
		if err := json.Unmarshal([]byte(settings), &project.Settings); err != nil {
			return nil, fmt.Errorf("decode project settings: %w", err)
		}
	}
	return project, nil
}

func (r *sqliteProjectRepo) Create(ctx context.Context, project *models.Project) error {
	members, err := encodeJSON(project.Members)
	if err != nil {
		return err
	}
	admins, err := encodeJSON(project.Admins)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(project.Settings)
	if err != nil {
		return fmt.Errorf("encode project settings: %w", err)
	}

	query := `
		INSERT INTO projects (id, name, description, owner, members, admins, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		project.ID, project.Name, project.Description, project.Owner,
		members, admins, string(settings),
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *sqliteProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return project, nil
}

func (r *sqliteProjectRepo) GetByName(ctx context.Context, name string) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE name = ?", name)
	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by name: %w", err)
	}
	return project, nil
}

func (r *sqliteProjectRepo) Update(ctx context.Context, project *models.Project) error {
	members, err := encodeJSON(project.Members)
	if err != nil {
		return err
	}
	admins, err := encodeJSON(project.Admins)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(project.Settings)
	if err != nil {
		return fmt.Errorf("encode project settings: %w", err)
	}

	query := `
		UPDATE projects SET name = ?, description = ?, owner = ?, members = ?, admins = ?, settings = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		project.Name, project.Description, project.Owner,
		members, admins, string(settings), project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project %s: %w", project.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a project, its tickets, and all membership references
// in one transaction. The default project is protected unconditionally.
func (r *sqliteProjectRepo) Delete(ctx context.Context, id string) error {
	if id == models.DefaultProjectID {
		return ErrDefaultProjectProtected
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete project: %w", err)
	}
	defer tx.Rollback()

	// Children referencing tickets of this project via parent_task get
	// nulled by the FK before the parent rows go away.
	if _, err := tx.ExecContext(ctx,
		"UPDATE tickets SET parent_task = NULL WHERE parent_task IN (SELECT id FROM tickets WHERE project = ?)", id,
	); err != nil {
		return fmt.Errorf("detach child tickets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tickets WHERE project = ?", id); err != nil {
		return fmt.Errorf("delete project tickets: %w", err)
	}

	// Strip the project id from every user's membership list.
	rows, err := tx.QueryContext(ctx, "SELECT id, projects FROM users")
	if err != nil {
		return fmt.Errorf("list user memberships: %w", err)
	}
	type membership struct {
		userID   string
		projects []string
	}
	var updates []membership
	for rows.Next() {
		var userID, raw string
		if err := rows.Scan(&userID, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("scan user membership: %w", err)
		}
		ids, err := decodeStringSlice(raw)
		if err != nil {
			rows.Close()
			return err
		}
		kept := ids[:0]
		removed := false
		for _, pid := range ids {
			if pid == id {
				removed = true
				continue
			}
			kept = append(kept, pid)
		}
		if removed {
			updates = append(updates, membership{userID: userID, projects: kept})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate user memberships: %w", err)
	}
	rows.Close()

	now := time.Now()
	for _, u := range updates {
		encoded, err := encodeJSON(u.projects)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET projects = ?, updated_at = ? WHERE id = ?",
			encoded, now, u.userID,
		); err != nil {
			return fmt.Errorf("remove membership for user %s: %w", u.userID, err)
		}
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}

	return tx.Commit()
}

func (r *sqliteProjectRepo) List(ctx context.Context) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// ListForUser returns projects whose member list contains the user.
// Membership lives in a JSON column, so the filter happens in Go.
func (r *sqliteProjectRepo) ListForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var projects []*models.Project
	for _, p := range all {
		if p.HasMember(userID) {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

// AddMember enrolls a user, keeping both the project member list and the
// user's membership list in sync.
func (r *sqliteProjectRepo) AddMember(ctx context.Context, projectID, userID string) error {
	return r.updateMembership(ctx, projectID, userID, true)
}

// RemoveMember drops a user from the project and the user's membership list.
func (r *sqliteProjectRepo) RemoveMember(ctx context.Context, projectID, userID string) error {
	return r.updateMembership(ctx, projectID, userID, false)
}

func (r *sqliteProjectRepo) updateMembership(ctx context.Context, projectID, userID string, add bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin membership update: %w", err)
	}
	defer tx.Rollback()

	var members, admins string
	err = tx.QueryRowContext(ctx, "SELECT members, admins FROM projects WHERE id = ?", projectID).Scan(&members, &admins)
	if err == sql.ErrNoRows {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get project members: %w", err)
	}

	project := &models.Project{ID: projectID}
	if project.Members, err = decodeStringSlice(members); err != nil {
		return err
	}
	if project.Admins, err = decodeStringSlice(admins); err != nil {
		return err
	}

	var userProjects string
	err = tx.QueryRowContext(ctx, "SELECT projects FROM users WHERE id = ?", userID).Scan(&userProjects)
	if err == sql.ErrNoRows {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get user memberships: %w", err)
	}
	user := &models.User{ID: userID}
	if user.Projects, err = decodeStringSlice(userProjects); err != nil {
		return err
	}

	if add {
		project.AddMember(userID)
		user.AddProject(projectID)
	} else {
		project.RemoveMember(userID)
		user.RemoveProject(projectID)
	}

	now := time.Now()
	encodedMembers, err := encodeJSON(project.Members)
	if err != nil {
		return err
	}
	encodedAdmins, err := encodeJSON(project.Admins)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE projects SET members = ?, admins = ?, updated_at = ? WHERE id = ?",
		encodedMembers, encodedAdmins, now, projectID,
	); err != nil {
		return fmt.Errorf("update project members: %w", err)
	}

	encodedProjects, err := encodeJSON(user.Projects)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET projects = ?, updated_at = ? WHERE id = ?",
		encodedProjects, now, userID,
	); err != nil {
		return fmt.Errorf("update user memberships: %w", err)
	}

	return tx.Commit()
}
