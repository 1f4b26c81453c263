package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/nulltasker/nulltasker/internal/models"
)

// Repositories over the in-memory collections of JSONStorage. Reads
// return copies so callers never alias the cached records.

type jsonUserRepo struct {
	store *JSONStorage
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Projects = append([]string(nil), u.Projects...)
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

func (r *jsonUserRepo) Create(ctx context.Context, user *models.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return fmt.Errorf("insert user: email already exists")
		}
		if u.ID == user.ID {
			return fmt.Errorf("insert user: id already exists")
		}
	}
	s.users = append(s.users, cloneUser(user))
	return s.saveUsersLocked()
}

func (r *jsonUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	//nolint:nilnil
	return nil, nil
}

func (r *jsonUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	//nolint:nilnil
	return nil, nil
}

func (r *jsonUserRepo) Update(ctx context.Context, user *models.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.users {
		if u.ID == user.ID {
			s.users[i] = cloneUser(user)
			return s.saveUsersLocked()
		}
	}
	return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
}

func (r *jsonUserRepo) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.users {
		if u.ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return s.saveUsersLocked()
		}
	}
	return fmt.Errorf("user %s: %w", id, ErrNotFound)
}

func (r *jsonUserRepo) List(ctx context.Context) ([]*models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, len(s.users))
	for i, u := range s.users {
		users[i] = cloneUser(u)
	}
	return users, nil
}

func (r *jsonUserRepo) Count(ctx context.Context) (int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

type jsonProjectRepo struct {
	store *JSONStorage
}

func cloneProject(p *models.Project) *models.Project {
	c := *p
	c.Members = append([]string(nil), p.Members...)
	c.Admins = append([]string(nil), p.Admins...)
	c.Settings.Categories = append([]string(nil), p.Settings.Categories...)
	c.Settings.Priorities = append([]models.ChoiceOption(nil), p.Settings.Priorities...)
	c.Settings.Statuses = append([]models.ChoiceOption(nil), p.Settings.Statuses...)
	return &c
}

func (r *jsonProjectRepo) Create(ctx context.Context, project *models.Project) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.projects {
		if p.ID == project.ID {
			return fmt.Errorf("insert project: id already exists")
		}
	}
	s.projects = append(s.projects, cloneProject(project))
	return s.saveProjectsLocked()
}

func (r *jsonProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.projects {
		if p.ID == id {
			return cloneProject(p), nil
		}
	}
	//nolint:nilnil
	return nil, nil
}

func (r *jsonProjectRepo) GetByName(ctx context.Context, name string) (*models.Project, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.projects {
		if p.Name == name {
			return cloneProject(p), nil
		}
	}
	//nolint:nilnil
	return nil, nil
}

func (r *jsonProjectRepo) Update(ctx context.Context, project *models.Project) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.projects {
		if p.ID == project.ID {
			s.projects[i] = cloneProject(project)
			return s.saveProjectsLocked()
		}
	}
	return fmt.Errorf("project %s: %w", project.ID, ErrNotFound)
}

func (r *jsonProjectRepo) Delete(ctx context.Context, id string) error {
	if id == models.DefaultProjectID {
		return ErrDefaultProjectProtected
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, p := range s.projects {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}

	// Null out parent references to tickets that are about to go away,
	// then drop the project's own tickets.
	doomed := make(map[string]bool)
	for _, t := range s.tickets {
		if t.Project == id {
			doomed[t.ID] = true
		}
	}
	kept := s.tickets[:0]
	for _, t := range s.tickets {
		if t.Project == id {
			continue
		}
		if t.ParentTask != nil && doomed[*t.ParentTask] {
			t.ParentTask = nil
			t.UpdatedAt = time.Now()
		}
		kept = append(kept, t)
	}
	s.tickets = kept
	if err := s.saveTicketsLocked(); err != nil {
		return err
	}

	// Strip membership from every user.
	now := time.Now()
	for _, u := range s.users {
		if u.IsMemberOf(id) {
			u.RemoveProject(id)
			u.UpdatedAt = now
		}
	}
	if err := s.saveUsersLocked(); err != nil {
		return err
	}

	s.projects = append(s.projects[:idx], s.projects[idx+1:]...)
	return s.saveProjectsLocked()
}

func (r *jsonProjectRepo) List(ctx context.Context) ([]*models.Project, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]*models.Project, len(s.projects))
	for i, p := range s.projects {
		projects[i] = cloneProject(p)
	}
	return projects, nil
}

func (r *jsonProjectRepo) ListForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var projects []*models.Project
	for _, p := range s.projects {
		if p.HasMember(userID) {
			projects = append(projects, cloneProject(p))
		}
	}
	return projects, nil
}

func (r *jsonProjectRepo) AddMember(ctx context.Context, projectID, userID string) error {
	return r.updateMembership(projectID, userID, true)
}

func (r *jsonProjectRepo) RemoveMember(ctx context.Context, projectID, userID string) error {
	return r.updateMembership(projectID, userID, false)
}

func (r *jsonProjectRepo) updateMembership(projectID, userID string, add bool) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var project *models.Project
	for _, p := range s.projects {
		if p.ID == projectID {
			project = p
			break
		}
	}
	if project == nil {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	var user *models.User
	for _, u := range s.users {
		if u.ID == userID {
			user = u
			break
		}
	}
	if user == nil {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	now := time.Now()
	if add {
		project.AddMember(userID)
		user.AddProject(projectID)
	} else {
		project.RemoveMember(userID)
		user.RemoveProject(projectID)
	}
	project.UpdatedAt = now
	user.UpdatedAt = now

	if err := s.saveProjectsLocked(); err != nil {
		return err
	}
	return s.saveUsersLocked()
}

type jsonTicketRepo struct {
	store *JSONStorage
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	if t.StartDate != nil {
		v := *t.StartDate
		c.StartDate = &v
	}
	if t.DueDate != nil {
		v := *t.DueDate
		c.DueDate = &v
	}
	if t.ParentTask != nil {
		v := *t.ParentTask
		c.ParentTask = &v
	}
	return &c
}

func (r *jsonTicketRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tickets {
		if t.ID == ticket.ID {
			return fmt.Errorf("insert ticket: id already exists")
		}
		if t.Project == ticket.Project && t.Title == ticket.Title {
			return fmt.Errorf("insert ticket: title already exists in project")
		}
	}
	s.tickets = append(s.tickets, cloneTicket(ticket))
	return s.saveTicketsLocked()
}

func (r *jsonTicketRepo) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tickets {
		if t.ID == id {
			return cloneTicket(t), nil
		}
	}
	//nolint:nilnil
	return nil, nil
}

func (r *jsonTicketRepo) GetByProjectTitle(ctx context.Context, projectID, title string) (*models.Ticket, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tickets {
		if t.Project == projectID && t.Title == title {
			return cloneTicket(t), nil
		}
	}
	//nolint:nilnil
	return nil, nil
}

func (r *jsonTicketRepo) Update(ctx context.Context, ticket *models.Ticket) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tickets {
		if t.ID == ticket.ID {
			s.tickets[i] = cloneTicket(ticket)
			return s.saveTicketsLocked()
		}
	}
	return fmt.Errorf("ticket %s: %w", ticket.ID, ErrNotFound)
}

func (r *jsonTicketRepo) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.tickets {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("ticket %s: %w", id, ErrNotFound)
	}

	s.tickets = append(s.tickets[:idx], s.tickets[idx+1:]...)

	// Children survive; only the dangling parent reference is cleared.
	now := time.Now()
	for _, t := range s.tickets {
		if t.ParentTask != nil && *t.ParentTask == id {
			t.ParentTask = nil
			t.UpdatedAt = now
		}
	}
	return s.saveTicketsLocked()
}

func (r *jsonTicketRepo) List(ctx context.Context) ([]*models.Ticket, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	tickets := make([]*models.Ticket, len(s.tickets))
	for i, t := range s.tickets {
		tickets[i] = cloneTicket(t)
	}
	return tickets, nil
}

func (r *jsonTicketRepo) ListByProject(ctx context.Context, projectID string) ([]*models.Ticket, error) {
	return r.ListByProjects(ctx, []string{projectID})
}

func (r *jsonTicketRepo) ListByProjects(ctx context.Context, projectIDs []string) ([]*models.Ticket, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(projectIDs))
	for _, id := range projectIDs {
		wanted[id] = true
	}

	var tickets []*models.Ticket
	for _, t := range s.tickets {
		if wanted[t.Project] {
			tickets = append(tickets, cloneTicket(t))
		}
	}
	return tickets, nil
}

func (r *jsonTicketRepo) Count(ctx context.Context) (int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tickets)), nil
}

type jsonSettingsRepo struct {
	store *JSONStorage
}

func (r *jsonSettingsRepo) Get(ctx context.Context) (*models.AppSettings, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return models.DefaultAppSettings(), nil
	}
	c := *s.settings
	c.Categories = append([]string(nil), s.settings.Categories...)
	return &c, nil
}

func (r *jsonSettingsRepo) Update(ctx context.Context, settings *models.AppSettings) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *settings
	c.Categories = append([]string(nil), settings.Categories...)
	s.settings = &c
	return s.saveSettingsLocked()
}
